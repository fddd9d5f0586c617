// Package webapp provides the base of a web application that queues headers
// and a body and emits them through a Runtime.
//
// The Runtime abstracts the process the application runs in: HTTPRuntime
// writes to an http.ResponseWriter, while webinspect.Inspector records what
// the application emits so tests can examine it.
package webapp
