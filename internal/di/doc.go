// Package di wires the application graph. InitializeApp is generated by wire from wire.go.
package di

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
