// Package prompt renders model prompts for SQL generation. Build is a pure
// function of its inputs: identical question, classification, descriptor and
// feedback always produce byte-identical output, so prompts can be asserted
// in tests without network calls.
package prompt

import (
	"fmt"
	"strings"

	"github.com/infraquery/infraquery/internal/config"
	"github.com/infraquery/infraquery/internal/domain"
	"github.com/infraquery/infraquery/internal/schema"
)

// Spec is a rendered prompt pair ready for a provider call.
type Spec struct {
	System string
	User   string
}

// examplePair is one curated question→SQL illustration embedded in every
// generation prompt.
type examplePair struct {
	Question string
	SQL      string
}

var examples = []examplePair{
	{
		Question: "Quais são os 5 estados com mais infrações?",
		SQL:      `SELECT "UF", COUNT(*) AS total_infracoes FROM ibama_infracao GROUP BY "UF" ORDER BY total_infracoes DESC LIMIT 5`,
	},
	{
		Question: "Qual o valor total de multas aplicadas no estado do Pará?",
		SQL:      `SELECT SUM(CAST(REPLACE("VAL_AUTO_INFRACAO", ',', '.') AS DOUBLE)) AS total_multas FROM ibama_infracao WHERE "UF" = 'PA'`,
	},
	{
		Question: "Mostre 3 infrações relacionadas a fauna com o CNPJ do infrator.",
		SQL:      `SELECT "NOME_INFRATOR", "CPF_CNPJ_INFRATOR", "DES_AUTO_INFRACAO" FROM ibama_infracao WHERE "TIPO_INFRACAO" = 'Fauna' LIMIT 3`,
	},
}

// Builder composes generation prompts from the question, the domain
// classification and the schema descriptor. It carries no mutable state.
type Builder struct {
	backend   config.Backend
	threshold float64
	rowLimit  int
}

func NewBuilder(backend config.Backend, threshold float64, rowLimit int) *Builder {
	return &Builder{backend: backend, threshold: threshold, rowLimit: rowLimit}
}

// Build renders the prompt. feedback holds the violation messages of the
// previous attempt and is empty on the first attempt; when present it is
// appended as corrective instructions.
func (b *Builder) Build(question string, cls domain.Classification, desc *schema.Descriptor, feedback []string) Spec {
	var sys strings.Builder

	sys.WriteString("Você é um assistente especialista em análise de dados ambientais do IBAMA.\n")
	sys.WriteString("Sua função é gerar UMA ÚNICA consulta SQL de leitura que responda à pergunta do usuário.\n")
	sys.WriteString("Retorne APENAS o código SQL, sem markdown e sem explicações.\n\n")

	sys.WriteString(b.dialectRules())
	sys.WriteString("\n")
	sys.WriteString(desc.Render())
	sys.WriteString("\n")

	sys.WriteString("Regras obrigatórias:\n")
	sys.WriteString("- Gere somente SELECT (ou WITH ... SELECT); nunca INSERT, UPDATE, DELETE, DROP ou DDL.\n")
	sys.WriteString("- Gere uma única instrução, sem ponto e vírgula no meio.\n")
	fmt.Fprintf(&sys, "- Use somente a tabela %q e as colunas listadas acima.\n", desc.Table())
	fmt.Fprintf(&sys, "- Inclua LIMIT %d a menos que a pergunta peça outro limite.\n", b.rowLimit)
	sys.WriteString(`- Sempre inclua "CPF_CNPJ_INFRATOR" junto com "NOME_INFRATOR" no SELECT.` + "\n")
	sys.WriteString("- Ao usar agregações (SUM, AVG, COUNT), sempre dê um apelido (alias) à coluna.\n\n")

	sys.WriteString("Exemplos:\n")
	for _, ex := range examples {
		fmt.Fprintf(&sys, "Pergunta: %s\nSQL: %s\n\n", ex.Question, ex.SQL)
	}

	if cls.Tag != domain.TagGeneral && cls.Confidence >= b.threshold {
		sys.WriteString("Contexto do domínio:\n")
		sys.WriteString(cls.RewriteHint)
		sys.WriteString("\n\n")
	}

	var user strings.Builder
	fmt.Fprintf(&user, "Pergunta: %s", strings.TrimSpace(question))
	if len(feedback) > 0 {
		user.WriteString("\n\nA consulta SQL anterior foi rejeitada pelos seguintes motivos:\n")
		for _, f := range feedback {
			fmt.Fprintf(&user, "- %s\n", f)
		}
		user.WriteString("Gere uma nova consulta corrigindo esses problemas.")
	}

	return Spec{System: sys.String(), User: user.String()}
}

func (b *Builder) dialectRules() string {
	switch b.backend {
	case config.BackendHosted:
		return `Você gera SQL para PostgreSQL.
Regras do dialeto:
1. Coloque os nomes das colunas entre aspas duplas (ex: "UF").
2. Para análises temporais use TO_TIMESTAMP("DAT_HORA_AUTO_INFRACAO", 'YYYY-MM-DD HH24:MI:SS').
3. Para cálculos sobre "VAL_AUTO_INFRACAO" use exatamente CAST(REPLACE("VAL_AUTO_INFRACAO", ',', '.') AS NUMERIC).
`
	case config.BackendBigQuery:
		return `Você gera SQL padrão do BigQuery.
Regras do dialeto:
1. Para análises temporais use EXTRACT(YEAR FROM SAFE_CAST(DAT_HORA_AUTO_INFRACAO AS TIMESTAMP)).
2. Para cálculos sobre VAL_AUTO_INFRACAO use SAFE_CAST(REPLACE(VAL_AUTO_INFRACAO, ',', '.') AS FLOAT64).
`
	default:
		return `Você gera SQL para DuckDB (sintaxe compatível com PostgreSQL).
Regras do dialeto:
1. Coloque os nomes das colunas entre aspas duplas (ex: "UF").
2. Para análises temporais use EXTRACT(YEAR FROM TRY_CAST("DAT_HORA_AUTO_INFRACAO" AS TIMESTAMP)).
3. Para cálculos sobre "VAL_AUTO_INFRACAO" use exatamente CAST(REPLACE("VAL_AUTO_INFRACAO", ',', '.') AS DOUBLE).
`
	}
}
