// Package state tracks per-user pending text input for Telegram conversations,
// such as profile fields awaiting a typed value.
package state
