// Package ui declares the replies an application gives to updates no route
// claimed.
package ui

import tele "gopkg.in/telebot.v4"

// FallbackProvider supplies the handlers for unmatched text, unexpected
// documents and callbacks whose key is not registered.
type FallbackProvider interface {
	UnknownText() tele.HandlerFunc
	UnknownDocument() tele.HandlerFunc
	UnknownCallback() tele.HandlerFunc
}
