// Package logger wraps zap to provide:
//   - a global sugared logger with console or JSON encoding,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing and the WithLevel option,
//   - convenience functions (Infof, ErrorKV, etc.).
//
// Services accept a context and log through the logger it carries. The
// decision engine itself never logs.
package logger
