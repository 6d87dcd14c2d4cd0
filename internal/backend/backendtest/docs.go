// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backendtest

import (
	"go.mongodb.org/mongo-driver/bson"

	"seedfast/docshell/internal/backend"
)

// Doc marshals a bson.D into a backend.Document and panics on failure.
func Doc(d bson.D) backend.Document {
	raw, err := bson.Marshal(d)
	if err != nil {
		panic(err)
	}
	return raw
}
