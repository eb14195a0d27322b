// Package webchat serves a chat session to browsers.
//
// Ownership model:
//   - The chat.Store owns the session; handlers only call Submit/Clear/Snapshot.
//   - Every change reaches the browsers through the session event topic, so a terminal view
//     and a browser view of the same session stay in step.
//
// Routes:
//   - GET  /api/transcript
//   - POST /api/chat                  {"text": "..."}
//   - POST /api/clear
//   - GET  /api/preferences/dark-mode
//   - POST /api/preferences/dark-mode {"darkMode": true} or empty body to toggle
//   - GET  /ws
//   - GET  /                          embedded single-page view
package webchat
