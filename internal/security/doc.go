// Package security derives the startup security report from effective settings.
package security
