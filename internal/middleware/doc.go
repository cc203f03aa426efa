// Package middleware holds the gin middleware shared by all routes:
// bearer authentication, request logging and rate limiting.
package middleware
