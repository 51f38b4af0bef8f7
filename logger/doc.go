// Package logger wraps zerolog with service, component and request
// fields. Output is JSON or a console format, selected by Config.
//
//	logging:
//	  level: debug
//	  format: json
//
// Packages that do not receive a *Logger use the process-wide one:
//
//	log := logger.WithComponent("orchestrator")
//	log.Info("run finished", logger.Fields(logger.FieldRunID, id, "chunks", 4))
package logger
