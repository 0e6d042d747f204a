package domain

// Weighted term tables per specialized domain. Terms are stored already
// lowercased and accent-folded; Classify folds the question the same way
// before matching. Weight 3 terms are unambiguous on their own, weight 2
// terms are strong in context, weight 1 terms only tip an already leaning
// score.
//
// Sources: infraction-description vocabulary from the IBAMA dataset and the
// fauna/flora provisions of Lei 9.605/98 (Lei de Crimes Ambientais).

var biopiracyTerms = []weightedTerm{
	{"biopirataria", 3},
	{"trafico de animais", 3},
	{"trafico de fauna", 3},
	{"comercio ilegal de animais", 3},
	{"animais silvestres", 2},
	{"animal silvestre", 2},
	{"fauna silvestre", 2},
	{"especies ameacadas", 2},
	{"especie ameacada", 2},
	{"patrimonio genetico", 2},
	{"recursos geneticos", 2},
	{"cativeiro", 2},
	{"contrabando", 2},
	{"lei 9.605", 2},
	{"crimes contra a fauna", 2},
	{"fauna", 1},
	{"passaro", 1},
	{"passaros", 1},
	{"papagaio", 1},
	{"arara", 1},
	{"jabuti", 1},
	{"tartaruga", 1},
	{"macaco", 1},
	{"onca", 1},
	{"peixe ornamental", 1},
	{"caca", 1},
	{"cacador", 1},
}

var deforestationTerms = []weightedTerm{
	{"desmatamento", 3},
	{"desmatamento ilegal", 3},
	{"corte raso", 3},
	{"extracao ilegal de madeira", 3},
	{"madeira ilegal", 2},
	{"area de preservacao permanente", 2},
	{"reserva legal", 2},
	{"queimada", 2},
	{"supressao de vegetacao", 2},
	{"mata atlantica", 2},
	{"amazonia", 1},
	{"floresta", 1},
	{"madeira", 1},
	{"vegetacao nativa", 1},
	{"flora", 1},
}

const biopiracyHint = "A pergunta trata de biopirataria ou tráfico de fauna silvestre. " +
	"A tabela não possui um rótulo explícito para isso: filtre com " +
	`"TIPO_INFRACAO" = 'Fauna' e, quando fizer sentido, procure em ` +
	`"DES_AUTO_INFRACAO" termos como 'silvestre', 'espécie', 'transportar', ` +
	"'comercializar', 'cativeiro' usando ILIKE."

const deforestationHint = "A pergunta trata de desmatamento ou dano à vegetação. " +
	`Filtre com "TIPO_INFRACAO" = 'Flora' e, quando fizer sentido, procure em ` +
	`"DES_AUTO_INFRACAO" termos como 'desmatar', 'vegetação', 'madeira', ` +
	"'queimada' usando ILIKE."

var domainTables = []domainTable{
	{Tag: TagBiopiracy, Terms: biopiracyTerms, Hint: biopiracyHint},
	{Tag: TagDeforestation, Terms: deforestationTerms, Hint: deforestationHint},
}
