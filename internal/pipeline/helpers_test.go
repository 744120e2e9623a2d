package pipeline_test

import (
	"strings"

	"ddtft/internal/pipeline"
)

func deliveryNoteText(grandTotal string) string {
	return strings.Join([]string{
		"ALFIERI SPA - MAGLIANO ALFIERI - P.IVA 03247720042",
		"DOCUMENTO DI TRASPORTO",
		"4521  19/05/25  1  20322",
		"DONAC S.R.L. DONAC S.R.L.",
		"VIA MARGARITA, 8 LOC. TETTO GARETTO VIA SALUZZO, 65",
		"12100 - CUNEO CN 12038 SAVIGLIANO CN",
		"CODICE DESCRIZIONE UM QTA PREZZO IMPORTO IVA",
		"070017 TAJARIN UOVO SACCHETTO ALFIERI 250G PZ 10 2,1700 21,70 04",
		"DL000301 OLIO EXTRAVERGINE 1L PZ 10 2,00 10,00 18,00 22",
		"TOTALE DOCUMENTO " + grandTotal,
	}, "\n")
}

func invoiceText() string {
	return strings.Join([]string{
		"FATTURA",
		"FT 4904 21/05/25 10.32 20322 03247720042 01234567897",
		"Spett.le",
		"BAR CENTRALE SNC",
		"VIA ROMA, 3",
		"12042 BRA CN",
		"070017 TAJARIN UOVO PZ 10 2,1700 21,70 04",
		"TOTALE FATTURA 22,57",
	}, "\n")
}

func newEngine() *pipeline.Engine {
	return pipeline.New(pipeline.DefaultOptions())
}
