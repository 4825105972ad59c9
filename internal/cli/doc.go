// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the interactive terminal front end: a line-edited
// REPL over the chat orchestrator with streaming reply output.
//
// Interactive commands:
//
//	/help            Show available commands
//	/chats           List chats
//	/new [name]      Create (and switch to) a chat
//	/open <n>        Switch to the n-th listed chat
//	/rename <name>   Rename the current chat
//	/delete          Delete the current chat
//	/bots            List bots
//	/regen           Regenerate the last bot reply
//	/reply           Ask the default bot to reply without new input
//	/stop            Stop the in-flight generation
//	/user [name]     Show or set the user profile name
//	/quit            Exit
//
// Anything else is sent as a message; a leading @botname routes it.
package cli
