package utils

import "net/http"

// SetupSSEHeaders 设置Server-Sent Events响应头。X-Accel-Buffering 关闭
// 反向代理的缓冲，否则增量片段会被攒到一起再下发。
func SetupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set("Access-Control-Allow-Origin", "*")
}
