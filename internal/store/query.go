package store

import (
	"context"
	"reflect"
	"slices"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// columnsOf lists the db tags of T in field order.
func columnsOf[T any]() []string {
	t := reflect.TypeFor[T]()
	cols := make([]string, 0, t.NumField())
	for i := range t.NumField() {
		tag := t.Field(i).Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		cols = append(cols, tag)
	}
	return cols
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func searchPredicate(term string, columns []string) sq.Sqlizer {
	term = strings.TrimSpace(term)
	if term == "" || len(columns) == 0 {
		return nil
	}
	pattern := "%" + likeEscaper.Replace(term) + "%"
	or := make(sq.Or, 0, len(columns))
	for _, c := range columns {
		or = append(or, sq.ILike{c: pattern})
	}
	return or
}

// filterPredicate turns equality filters into a stable AND of predicates.
func filterPredicate(filters map[string]any) sq.And {
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	and := make(sq.And, 0, len(keys))
	for _, k := range keys {
		and = append(and, sq.Eq{k: filters[k]})
	}
	return and
}

// selectPage runs the count and the page query sharing the same predicates.
func selectPage[T any](ctx context.Context, db DB, op string, rows, count sq.SelectBuilder, where []sq.Sqlizer, q ListQuery) ([]*T, int, error) {
	for _, w := range where {
		if w == nil {
			continue
		}
		rows = rows.Where(w)
		count = count.Where(w)
	}

	countSQL, countArgs, err := count.ToSql()
	if err != nil {
		return nil, 0, wrapErr(op, err)
	}
	var total int
	if err := db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, wrapErr(op, err)
	}

	query, args, err := rows.OrderBy("created_at DESC", "id").Limit(q.limit()).Offset(q.offset()).ToSql()
	if err != nil {
		return nil, 0, wrapErr(op, err)
	}
	r, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, wrapErr(op, err)
	}
	items, err := pgx.CollectRows(r, pgx.RowToAddrOfStructByName[T])
	if err != nil {
		return nil, 0, wrapErr(op, err)
	}
	if items == nil {
		items = []*T{}
	}
	return items, total, nil
}

// selectOne runs q and scans exactly one row into T.
func selectOne[T any](ctx context.Context, db DB, op string, q sq.Sqlizer) (*T, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, wrapErr(op, err)
	}
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	rec, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[T])
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return rec, nil
}

func exec(ctx context.Context, db DB, op string, q sq.Sqlizer) (int64, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return 0, wrapErr(op, err)
	}
	tag, err := db.Exec(ctx, query, args...)
	if err != nil {
		return 0, wrapErr(op, err)
	}
	return tag.RowsAffected(), nil
}
