package db

import (
	"context"
	"database/sql"
	"fmt"
)

// ExportTableNames lists the tables included in admin exports.
var ExportTableNames = []string{
	"users",
	"goals",
	"habits",
	"premium_users",
	"daily_tracking",
	"achievements",
	"audit_log",
}

// LogAction appends an audit_log row. Event subscribers call this.
func (db *DB) LogAction(ctx context.Context, ownerID int64, action, details string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO audit_log (owner_id, action, details) VALUES (?, ?, ?)`,
		ownerID, action, details)
	return err
}

// GetTableNames returns the list of tables to export.
func (db *DB) GetTableNames(ctx context.Context) ([]string, error) {
	return ExportTableNames, nil
}

// GetTableData returns all rows of one export table as maps keyed by
// column name. The table name is checked against the allow list.
func (db *DB) GetTableData(ctx context.Context, tableName string) (result []map[string]interface{}, columns []string, err error) {
	validTable := false
	for _, t := range ExportTableNames {
		if t == tableName {
			validTable = true
			break
		}
	}
	if !validTable {
		return nil, nil, fmt.Errorf("invalid table name: %s", tableName)
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return nil, nil, err
	}
	for rows.Next() {
		var cid, notNull, pk int
		var name, typeName string
		var dfltValue sql.NullString
		if errScan := rows.Scan(&cid, &name, &typeName, &notNull, &dfltValue, &pk); errScan != nil {
			rows.Close()
			return nil, nil, errScan
		}
		columns = append(columns, name)
	}
	rows.Close()

	if len(columns) == 0 {
		return nil, nil, fmt.Errorf("table %s has no columns", tableName)
	}

	dataRows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s", tableName))
	if err != nil {
		return nil, nil, err
	}
	defer dataRows.Close()

	for dataRows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if errScan := dataRows.Scan(valuePtrs...); errScan != nil {
			return nil, nil, errScan
		}
		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		result = append(result, row)
	}
	return result, columns, dataRows.Err()
}
