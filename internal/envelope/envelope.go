// ABOUTME: JSON response envelope shared by every API route
// ABOUTME: Shape is {success, data?, error?, message?}

package envelope

import (
	"encoding/json"
	"net/http"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// Reply is a complete response: a status code plus its envelope.
type Reply struct {
	Status int
	Body   Envelope
}

// OK builds a 200 reply carrying data and an optional message.
func OK(data any, message string) Reply {
	return Reply{Status: http.StatusOK, Body: Envelope{Success: true, Data: data, Message: message}}
}

// Created builds a 201 reply.
func Created(data any, message string) Reply {
	return Reply{Status: http.StatusCreated, Body: Envelope{Success: true, Data: data, Message: message}}
}

// Fail builds an error reply.
func Fail(status int, msg string) Reply {
	return Reply{Status: status, Body: Envelope{Success: false, Error: msg}}
}

// Write sends the reply as JSON.
func Write(w http.ResponseWriter, r Reply) {
	WriteJSON(w, r.Status, r.Body)
}

// WriteJSON sends v as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
