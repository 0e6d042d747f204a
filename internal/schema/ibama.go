package schema

// Curated glosses for the IBAMA infraction table. The CSV dump ships every
// field as text, so declared types below are the types after ingestion, and
// the glosses warn the model about the string-encoded value and date columns.
var ibamaColumns = []Column{
	{Name: "SEQ_AUTO_INFRACAO", Type: "VARCHAR", Gloss: "identificador sequencial do auto de infração"},
	{Name: "NOME_INFRATOR", Type: "VARCHAR", Gloss: "nome ou razão social do autuado"},
	{Name: "CPF_CNPJ_INFRATOR", Type: "VARCHAR", Gloss: "CPF ou CNPJ do autuado"},
	{Name: "UF", Type: "VARCHAR", Gloss: "sigla da unidade federativa onde a infração ocorreu (ex: PA, SP)"},
	{Name: "MUNICIPIO", Type: "VARCHAR", Gloss: "município da infração"},
	{Name: "TIPO_INFRACAO", Type: "VARCHAR", Gloss: "categoria da infração (Fauna, Flora, Pesca, Poluição, ...)"},
	{Name: "GRAVIDADE_INFRACAO", Type: "VARCHAR", Gloss: "gravidade atribuída ao auto (Leve, Média, Grave, Gravíssima)"},
	{Name: "DES_AUTO_INFRACAO", Type: "VARCHAR", Gloss: "descrição textual livre do auto de infração"},
	{Name: "VAL_AUTO_INFRACAO", Type: "VARCHAR", Gloss: "valor da multa em reais, armazenado como texto com vírgula decimal"},
	{Name: "DAT_HORA_AUTO_INFRACAO", Type: "VARCHAR", Gloss: "data e hora da lavratura, texto no formato YYYY-MM-DD HH:MM:SS"},
	{Name: "DES_STATUS_FORMULARIO", Type: "VARCHAR", Gloss: "situação do formulário do auto (ex: Quitado, Cancelado)"},
	{Name: "NUM_LATITUDE_AUTO", Type: "DOUBLE", Gloss: "latitude do local da infração"},
	{Name: "NUM_LONGITUDE_AUTO", Type: "DOUBLE", Gloss: "longitude do local da infração"},
}

// DefaultDescriptor returns the curated descriptor for the infraction table.
// Used directly when store introspection is unavailable, and as the gloss
// source when it is.
func DefaultDescriptor(table string) *Descriptor {
	return New(table, ibamaColumns)
}

// glossFor returns the curated gloss for a column name, or a neutral gloss
// for columns the curation does not know about.
func glossFor(name string) string {
	for _, c := range ibamaColumns {
		if c.Name == name {
			return c.Gloss
		}
	}
	return "coluna sem descrição curada"
}
