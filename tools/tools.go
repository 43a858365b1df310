//go:build tools

// Package tools pins oapi-codegen so clients of api/openapi.yaml are
// generated with the version recorded in go.mod:
//
//	go run github.com/oapi-codegen/oapi-codegen/v2/cmd/oapi-codegen -generate types,client -package checkoutclient api/openapi.yaml
package tools

import (
	_ "github.com/oapi-codegen/oapi-codegen/v2/cmd/oapi-codegen"
)
