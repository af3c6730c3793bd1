// Package api provides the read-only REST API over indexed events.
//
//go:generate swag init -g docs.go -o docs --parseDependency
//
// @title ethindex API
// @version 1.0
// @description REST API for querying Ethereum events indexed by ethindex
// @license.name Apache 2.0
// @license.url https://www.apache.org/licenses/LICENSE-2.0.html
// @basePath /api/v1
// @schemes http https
package api
