package repository

import "github.com/Masterminds/squirrel"

// psql builds Postgres flavoured statements with $n placeholders.
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

func normalizePage(page, pageSize, defaultSize, maxSize int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > maxSize {
		pageSize = defaultSize
	}
	return page, pageSize, (page - 1) * pageSize
}
