// Package logging provides structured logging utilities for the fastmcp-github-oauth application.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Structured logging with slog
//   - PII sanitization (email anonymization, credential masking)
//   - Host/URL sanitization for security
//   - Consistent attribute naming across the codebase
//
// # Usage Patterns
//
// Log with standard attributes:
//
//	logger.Info("tool invoked",
//	    logging.Tool("get_user_info"),
//	    logging.UserHash(email),
//	    logging.Status(logging.StatusSuccess))
//
// Sanitize sensitive data before logging:
//
//	logger.Info("claims fetched",
//	    logging.UserHash(email),
//	    logging.Host(apiBaseURL))
//
// # Security Considerations
//
// This package is designed with security in mind:
//   - User emails are hashed to prevent PII leakage while allowing correlation
//   - Upstream API URLs have IP addresses redacted to prevent topology leakage
//   - Credentials and tokens are never logged directly
package logging
