// Package chat contains the per-message processing pipeline and the platform
// runners that feed it.
//
// It provides three entrypoints:
//   - Processor.Process: the shared pipeline applied to every incoming chat
//     message. Moderation runs first (spam verdicts become timeouts plus a
//     notice in chat), then command routing.
//   - RunYouTube: resolves the active live chat of the configured video and
//     polls it, honoring the polling interval hints the API returns. The bot's
//     own messages and already-seen message ids are skipped.
//   - RunTwitch: connects to Twitch IRC for the configured channel and feeds
//     each private message through the same pipeline. Timeouts are issued via
//     the Helix moderation API.
//
// Credentials: the YouTube runner requires a stored OAuth token (see the
// /auth/youtube endpoints), the Twitch runner requires a bot username and an
// OAuth token with chat:read/chat:edit scopes.
package chat
