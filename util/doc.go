// Package util provides small helpers shared by the transcription packages:
// size parsing, secret masking, env value cleanup and rune-safe truncation.
package util
