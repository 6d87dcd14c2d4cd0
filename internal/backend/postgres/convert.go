// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package postgres

import (
	"fmt"
	"math/big"
	"net/netip"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"go.mongodb.org/mongo-driver/bson"

	"seedfast/docshell/internal/backend"
	"seedfast/docshell/internal/errors"
)

// jsonToDocument converts the output of row_to_json into a BSON document,
// keeping column order.
func jsonToDocument(text string) (backend.Document, error) {
	var doc bson.D
	if err := bson.UnmarshalExtJSON([]byte(text), false, &doc); err != nil {
		return nil, errors.Wrap(errors.DriverError, "decode row", err)
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(errors.DriverError, "encode row", err)
	}
	return raw, nil
}

// rowToDocument builds a document from column names and pgx values.
// Duplicate column names are suffixed so no value is lost.
func rowToDocument(cols []string, vals []any) (backend.Document, error) {
	doc := make(bson.D, 0, len(cols))
	seen := make(map[string]int, len(cols))
	for i, col := range cols {
		name := col
		if n := seen[col]; n > 0 {
			name = fmt.Sprintf("%s_%d", col, n)
		}
		seen[col]++
		doc = append(doc, bson.E{Key: name, Value: toBSONValue(vals[i])})
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(errors.DriverError, "encode row", err)
	}
	return raw, nil
}

// toBSONValue converts pgx-decoded values into types the BSON encoder accepts.
func toBSONValue(v any) any {
	switch val := v.(type) {
	case nil, string, bool, int16, int32, int64, float32, float64, time.Time, []byte:
		return val
	case int8:
		return int32(val)
	case int:
		return int64(val)
	case [16]byte:
		return uuid.UUID(val).String()
	case pgtype.Numeric:
		return numericValue(val)
	case netip.Prefix:
		return val.String()
	case netip.Addr:
		return val.String()
	case time.Duration:
		return val.String()
	case pgtype.Interval:
		if !val.Valid {
			return nil
		}
		return fmt.Sprintf("%d months %d days %s", val.Months, val.Days, time.Duration(val.Microseconds)*time.Microsecond)
	case map[string]any:
		out := make(bson.M, len(val))
		for k, item := range val {
			out[k] = toBSONValue(item)
		}
		return out
	case []any:
		out := make(bson.A, len(val))
		for i, item := range val {
			out[i] = toBSONValue(item)
		}
		return out
	case fmt.Stringer:
		return val.String()
	}
	return fmt.Sprint(v)
}

// numericValue keeps integral numerics exact and renders the rest as
// decimal text.
func numericValue(n pgtype.Numeric) any {
	if !n.Valid {
		return nil
	}
	if n.NaN {
		return "NaN"
	}
	if n.InfinityModifier != pgtype.Finite {
		if n.InfinityModifier == pgtype.Infinity {
			return "Infinity"
		}
		return "-Infinity"
	}
	if n.Exp >= 0 {
		i := new(big.Int).Mul(n.Int, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n.Exp)), nil))
		if i.IsInt64() {
			return i.Int64()
		}
		return i.String()
	}
	digits := n.Int.String()
	neg := strings.HasPrefix(digits, "-")
	digits = strings.TrimPrefix(digits, "-")
	scale := int(-n.Exp)
	if len(digits) <= scale {
		digits = strings.Repeat("0", scale-len(digits)+1) + digits
	}
	out := digits[:len(digits)-scale] + "." + digits[len(digits)-scale:]
	if neg {
		out = "-" + out
	}
	return out
}
