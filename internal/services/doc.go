// Package services contains the business logic between the HTTP
// transport and the license, approval and audit packages. Services
// translate domain results into API response shapes and own the status
// classification rules the transport exposes.
package services
