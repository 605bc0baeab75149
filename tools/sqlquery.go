package tools

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// SQLQueryTool turns a natural language question into a SQL query, runs it
// against a database, and returns the rows as text.
type SQLQueryTool struct {
	db      *sql.DB
	model   llms.Model
	schema  string
	maxRows int
}

// SQLQueryOption configures a SQLQueryTool.
type SQLQueryOption func(*SQLQueryTool)

// WithMaxRows caps the number of result rows rendered. Defaults to 50.
func WithMaxRows(n int) SQLQueryOption {
	return func(t *SQLQueryTool) {
		if n > 0 {
			t.maxRows = n
		}
	}
}

// NewSQLQueryTool builds the tool. The schema text describes the tables to
// the query-writing model, usually the CREATE TABLE statements.
func NewSQLQueryTool(db *sql.DB, model llms.Model, schema string, opts ...SQLQueryOption) (*SQLQueryTool, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if model == nil {
		return nil, fmt.Errorf("model is required")
	}

	t := &SQLQueryTool{
		db:      db,
		model:   model,
		schema:  schema,
		maxRows: 50,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

func (t *SQLQueryTool) Name() string {
	return "generate_and_run_sql_query"
}

func (t *SQLQueryTool) Description() string {
	return "Generates and runs a SQL query based on a natural language request. " +
		"Input should be a question about the data. Returns the query result rows."
}

// Call generates a SELECT query for the input question and executes it.
func (t *SQLQueryTool) Call(ctx context.Context, input string) (string, error) {
	query, err := t.generateQuery(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to generate query: %w", err)
	}

	if !isSelect(query) {
		return "", fmt.Errorf("generated query is not a SELECT statement: %s", query)
	}

	result, err := t.runQuery(ctx, query)
	if err != nil {
		return "", fmt.Errorf("query failed: %w", err)
	}
	return fmt.Sprintf("Query:\n%s\n\nResult:\n%s", query, result), nil
}

func (t *SQLQueryTool) generateQuery(ctx context.Context, question string) (string, error) {
	prompt := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, fmt.Sprintf(
			"You write SQL. Given the schema below, answer the user's question with "+
				"a single SELECT statement. Respond with ONLY the SQL, no explanation "+
				"and no markdown fences.\n\nSchema:\n%s", t.schema)),
		llms.TextParts(llms.ChatMessageTypeHuman, question),
	}

	resp, err := t.model.GenerateContent(ctx, prompt)
	if err != nil {
		return "", err
	}
	return cleanSQL(resp.Choices[0].Content), nil
}

func (t *SQLQueryTool) runQuery(ctx context.Context, query string) (string, error) {
	rows, err := t.db.QueryContext(ctx, query)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(strings.Join(columns, " | "))
	sb.WriteString("\n")

	count := 0
	values := make([]any, len(columns))
	pointers := make([]any, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}

	for rows.Next() {
		if count >= t.maxRows {
			fmt.Fprintf(&sb, "... truncated at %d rows\n", t.maxRows)
			break
		}
		if err := rows.Scan(pointers...); err != nil {
			return "", err
		}

		cells := make([]string, len(columns))
		for i, v := range values {
			cells[i] = renderValue(v)
		}
		sb.WriteString(strings.Join(cells, " | "))
		sb.WriteString("\n")
		count++
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	if count == 0 {
		return "no rows", nil
	}
	return sb.String(), nil
}

// cleanSQL strips markdown fences and surrounding whitespace the model may
// add despite instructions.
func cleanSQL(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```sql")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func isSelect(query string) bool {
	q := strings.ToUpper(strings.TrimSpace(query))
	return strings.HasPrefix(q, "SELECT") || strings.HasPrefix(q, "WITH")
}

func renderValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
