// Package asr turns an audio file of any length into one transcript.
//
// A Transcriber probes the file, cuts it into chunks no longer than the
// configured maximum (preferring the middle of silent stretches), drops
// silent chunks, sends the rest to a transcription backend under a
// concurrency bound and stitches the results back together in order:
//
//	t, err := asr.New(cfg, media.NewFFmpeg(cfg.MediaConfig(), nil), backend,
//	    asr.WithLogger(log), asr.WithMetrics(metrics))
//	res, err := t.Transcribe(ctx, "/data/meeting.m4a", asr.RunOptions{Mode: asr.ModeSliding})
//	fmt.Println(res.Text)
//
// Context modes trade speed for continuity: ModeNone runs every chunk
// concurrently, ModeSliding primes the rest with the first chunk's text and
// ModeFullSerial feeds each chunk everything transcribed before it.
//
// The first failing chunk cancels the others and its error is returned;
// no partial transcript is produced.
package asr
