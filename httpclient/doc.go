// Package httpclient is the outbound HTTP layer used by the transcription
// backends. It adds bearer auth, multipart uploads, optional rate
// limiting and retry. Every failure is an *Error whose Kind and status
// decide whether it is retryable (timeouts, connection failures, 429, 5xx).
//
//	client, _ := httpclient.New(httpclient.Config{
//	    BaseURL: "https://open.bigmodel.cn/api/paas/v4",
//	    Timeout: 60 * time.Second,
//	    Auth:    httpclient.BearerAuth(apiKey),
//	    Retry:   httpclient.LinearRetryConfig(3, time.Second),
//	})
//
//	resp, err := client.Do(ctx, httpclient.Request{
//	    Method: http.MethodPost,
//	    Path:   "/audio/transcriptions",
//	    Body:   &httpclient.MultipartBody{...},
//	})
package httpclient
