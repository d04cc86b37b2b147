// Package logx configures habitbot's structured logging.
//
// A small wrapper (logx.Logger) on top of zerolog keeps console output
// readable (short timestamp + short caller) and file output JSON-structured.
// Levels and sinks can be swapped at runtime with Service.Apply.
package logx
