package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/status"
)

// ErrorDump flattens an error chain into loggable fields: the chain itself
// plus whatever postgres or Google API detail is buried in it.
type ErrorDump struct {
	TopMessage string   `json:"top_message"`
	Code       Code     `json:"code,omitempty"`
	Chain      []string `json:"chain,omitempty"`

	PGCode       string `json:"pg_code,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGDetail     string `json:"pg_detail,omitempty"`

	// Google HTTP APIs (storage, vision) and gRPC APIs (pubsub).
	GoogleStatus int    `json:"google_status,omitempty"`
	GoogleReason string `json:"google_reason,omitempty"`
	GRPCCode     string `json:"grpc_code,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var pgxErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgxErr):
		d.PGCode = pgxErr.Code
		d.PGConstraint = pgxErr.ConstraintName
		d.PGTable = pgxErr.TableName
		d.PGDetail = pgxErr.Detail
	case errors.As(err, &pqErr):
		d.PGCode = string(pqErr.Code)
		d.PGConstraint = pqErr.Constraint
		d.PGTable = pqErr.Table
		d.PGDetail = pqErr.Detail
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		d.GoogleStatus = apiErr.Code
		if len(apiErr.Errors) > 0 {
			d.GoogleReason = apiErr.Errors[0].Reason
		}
	}
	if st, ok := status.FromError(err); ok {
		d.GRPCCode = st.Code().String()
	}
	return d
}

// Fields returns the non-empty parts of the dump as log fields.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{"error": d.TopMessage}
	add := func(key string, value any, present bool) {
		if present {
			fields[key] = value
		}
	}
	add("error_code", d.Code, d.Code != "")
	add("error_chain", d.Chain, len(d.Chain) > 1)
	add("pg_code", d.PGCode, d.PGCode != "")
	add("pg_constraint", d.PGConstraint, d.PGConstraint != "")
	add("pg_table", d.PGTable, d.PGTable != "")
	add("pg_detail", d.PGDetail, d.PGDetail != "")
	add("google_status", d.GoogleStatus, d.GoogleStatus != 0)
	add("google_reason", d.GoogleReason, d.GoogleReason != "")
	add("grpc_code", d.GRPCCode, d.GRPCCode != "")
	return fields
}
