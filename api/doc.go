// Package api holds the request and response types of the adsbridge HTTP API.
//
// # API Overview
//
// adsbridge exposes a small RESTful API for:
//   - Orchestrated runs: start an AdsPower profile, run one automation
//     task against it, always stop the profile
//   - Direct automation calls (run, stop, deep search, recordings, models)
//   - AdsPower profile listing, start, stop and status
//   - Health monitoring and metrics
//
// # Authentication
//
// When API keys are configured, endpoints under /api/v1 require the
// X-API-Key header:
//
//	X-API-Key: your-api-key
//
// A Bearer JWT is accepted instead when JWT verification is enabled.
//
// # Base URL
//
// The default base URL for the API is:
//
//	http://localhost:8080
//
// # Generating Documentation
//
// Handlers carry swag annotations:
//
//	swag init -g cmd/adsbridge/main.go -o api --parseDependency --parseInternal
package api
