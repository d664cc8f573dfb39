// Package prompt assembles the text prompts sent to the language model. Every
// builder is pure and deterministic: identical inputs yield identical prompts.
package prompt

import (
	"strings"

	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/conversation"
)

const NoContextSentinel = "NO_CONTEXT"

const NoResultsMarker = "No results found."

const classifySystem = `You are an assistant specialized in determining whether a query is a data request or a casual interaction with the user. Your task is to analyze the query and return one of the following fixed responses to classify the query:
If the query is a data request (e.g., "What's the most expensive product?", "How many sales did we have today?", etc.), return: "sql_request"
If the query is a casual interaction, such as a greeting or thank you (e.g., "hi", "thanks", "good afternoon", etc.), return: "casual_interaction"

Important: Only return "sql_request" or "casual_interaction" and nothing else. Do not provide explanations or additional context. Simply classify the query according to the examples above.`

const sqlSystem = `You are a specialist in creating and building SQL queries. You must follow the syntax rules according to
the engine. You must respond ONLY WITH THE QUERY according to USER. You must strictly follow all RULES.`

const sqlRules = "- Return SQL only\n" +
	"- DO NOT RETURN EXPLANATIONS\n" +
	"- Do not use names that don't exist in the SCHEMA\n" +
	"- FOLLOW SYNTAX RULES in SQL generation\n" +
	"- Create queries based on SCHEMA\n" +
	"- If unable to, return " + NoContextSentinel + "\n" +
	"- The answer MUST ALWAYS be between ```sql and ```"

const summarySystem = `You are a data analyst assistant. Your job is to answer the user's question in clear, natural English, based on the SQL query result below.
Always be concise, objective, and use the data to justify your answer. If the result is empty, explain that no data was found.`

const casualSystem = `You are a friendly data analyst assistant. Respond to the user's last message in a natural and polite way, considering the conversation history.
Do not engage in conversations that are not related to data analysis, business insights, or questions about the system. Politely redirect the user if the topic is not relevant.`

const plotSystem = `You are a Python data visualization specialist. Write plotting code for the pandas DataFrame named df that best answers the user's question.`

const plotRules = "- The DataFrame is already loaded as df; never read or write files\n" +
	"- Only these imports are allowed: import matplotlib.pyplot as plt, import seaborn as sns, import plotly.express as px\n" +
	"- Do not define functions or classes\n" +
	"- Do not call plt.show() or savefig\n" +
	"- Use only columns listed in <|columns|>\n" +
	"- Return only code between ```python and ```"

// Builder renders prompts for every model task. The zero value is ready to use.
type Builder struct{}

func (Builder) Classify(message string, history *conversation.History) string {
	var b strings.Builder
	section(&b, "system", classifySystem)
	b.WriteString("\n")
	section(&b, "history", history.Render())
	b.WriteString("\n")
	section(&b, "user", message)
	b.WriteString("\n<|assistant|>\n")
	return b.String()
}

type SQLInput struct {
	Question       string
	Schema         string
	SyntaxRules    string
	DataDictionary string
	History        *conversation.History
}

func (Builder) GenerateSQL(in SQLInput) string {
	var b strings.Builder
	section(&b, "system", sqlSystem)
	section(&b, "sintax", in.SyntaxRules)
	section(&b, "rules", sqlRules)
	section(&b, "schema", in.Schema)
	section(&b, "data dictionary", in.DataDictionary)
	section(&b, "history", in.History.Render())
	b.WriteString("<|user|>:\n")
	b.WriteString(in.Question)
	b.WriteString("\n<|assistant|>:\n")
	return b.String()
}

// SummaryInput carries the rendered result table; an empty ResultTable is
// replaced by NoResultsMarker.
type SummaryInput struct {
	Question    string
	SQL         string
	ResultTable string
	History     *conversation.History
}

func (Builder) Summarize(in SummaryInput) string {
	table := in.ResultTable
	if strings.TrimSpace(table) == "" {
		table = NoResultsMarker
	}
	var b strings.Builder
	section(&b, "system", summarySystem)
	b.WriteString("\n")
	section(&b, "history", in.History.Render())
	section(&b, "user_question", in.Question)
	b.WriteString("\n")
	section(&b, "sql_query", in.SQL)
	b.WriteString("\n")
	section(&b, "sql_result", table)
	b.WriteString("\n<|assistant|>\n")
	return b.String()
}

func (Builder) Casual(message string, history *conversation.History) string {
	var b strings.Builder
	section(&b, "system", casualSystem)
	b.WriteString("\n")
	section(&b, "history", history.Render())
	section(&b, "user", message)
	b.WriteString("\n<|assistant|>\n")
	return b.String()
}

type PlotInput struct {
	Question string
	Columns  []string
	Sample   string
}

func (Builder) PlotCode(in PlotInput) string {
	var b strings.Builder
	section(&b, "system", plotSystem)
	section(&b, "rules", plotRules)
	section(&b, "columns", strings.Join(in.Columns, ", "))
	section(&b, "sample", in.Sample)
	section(&b, "user", in.Question)
	b.WriteString("<|assistant|>\n")
	return b.String()
}

func section(b *strings.Builder, tag, body string) {
	b.WriteString("<|")
	b.WriteString(tag)
	b.WriteString("|>\n")
	b.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\n")
	}
}
