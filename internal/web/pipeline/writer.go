// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

package pipeline

import "net/http"

// statusWriter captures status and size and whether the response started.
type statusWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (sw *statusWriter) WriteHeader(code int) {
	if sw.status == 0 {
		sw.status = code
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if sw.status == 0 {
		sw.status = http.StatusOK
	}
	n, err := sw.ResponseWriter.Write(b)
	sw.size += n
	return n, err
}

// Started reports whether headers were sent.
func (sw *statusWriter) Started() bool { return sw.status != 0 }

// Status returns the response status, 200 when nothing was written.
func (sw *statusWriter) Status() int {
	if sw.status == 0 {
		return http.StatusOK
	}
	return sw.status
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (sw *statusWriter) Unwrap() http.ResponseWriter { return sw.ResponseWriter }

// fixedStatusWriter forces every response to carry status.
type fixedStatusWriter struct {
	http.ResponseWriter
	status  int
	started bool
}

func (fw *fixedStatusWriter) WriteHeader(int) {
	if fw.started {
		return
	}
	fw.started = true
	fw.ResponseWriter.WriteHeader(fw.status)
}

func (fw *fixedStatusWriter) Write(b []byte) (int, error) {
	if !fw.started {
		fw.WriteHeader(fw.status)
	}
	return fw.ResponseWriter.Write(b)
}

func (fw *fixedStatusWriter) Unwrap() http.ResponseWriter { return fw.ResponseWriter }
