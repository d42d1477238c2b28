// Package airq talks to air-Q devices over their local HTTP API. Every response body is a json object whose
// "content" field holds base64 encoded AES-256-CBC ciphertext keyed by the device password.
package airq
