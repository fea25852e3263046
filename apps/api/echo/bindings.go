package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/listing"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind parses `?ordering=name,-created_at` into Orderings; a leading "-" sorts descending.
func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// envelope is the body of every successful response.
type envelope struct {
	Data interface{}   `json:"data"`
	Meta *listing.Meta `json:"meta,omitempty"`
}

// listEnvelope wraps a page of rows and its pagination.
func listEnvelope[T any](view listing.View[T]) envelope {
	rows := view.Rows
	if rows == nil {
		rows = []T{}
	}
	meta := view.Meta()
	return envelope{Data: rows, Meta: &meta}
}

type destroyMultipleRequest struct {
	IDs []string `query:"id"`
}
