package tools

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
)

// DataAnalyzerTool asks a model to analyze tabular data and report insights.
// It pairs with SQLQueryTool: the query tool produces rows, this tool reads
// them.
type DataAnalyzerTool struct {
	model llms.Model
}

func NewDataAnalyzerTool(model llms.Model) (*DataAnalyzerTool, error) {
	if model == nil {
		return nil, fmt.Errorf("model is required")
	}
	return &DataAnalyzerTool{model: model}, nil
}

func (t *DataAnalyzerTool) Name() string {
	return "data_analyzer"
}

func (t *DataAnalyzerTool) Description() string {
	return "Analyzes data and provides insights. Input should be the data to " +
		"analyze, for example rows returned by a SQL query, optionally with the " +
		"question to answer about it."
}

func (t *DataAnalyzerTool) Call(ctx context.Context, input string) (string, error) {
	prompt := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem,
			"You are a data analyst. Analyze the provided data and report the key "+
				"insights. Mention notable trends, outliers and totals. Be concise."),
		llms.TextParts(llms.ChatMessageTypeHuman, input),
	}

	resp, err := t.model.GenerateContent(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("analysis failed: %w", err)
	}
	return resp.Choices[0].Content, nil
}
