// Package bootstrap runs the lifecycle of the asr binaries.
//
// An App validates its typed config, starts registered components in
// order, runs hooks, and then either blocks until a shutdown signal (Run,
// for the HTTP service) or runs a finite task (RunTask, for the CLI).
// Components stop in reverse order within a graceful timeout.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.Register(bootstrap.NewComponent("redis", nil, func(context.Context) error { return rdb.Close() }))
//	app.AddHealthCheck(observability.CheckFunc{Name: "ffmpeg", Check: tool.Check})
//	err = app.RunTask(ctx, func(ctx context.Context) error {
//	    _, err := t.Transcribe(ctx, path, asr.RunOptions{})
//	    return err
//	})
package bootstrap
