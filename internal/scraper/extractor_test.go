package scraper

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ioioiog/engie-scraper/internal/models"
)

func mustParse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func newTestExtractor() *Extractor {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewExtractor(log)
}

func electricityRow() string {
	return `<tr>
		<td>Factura receipt 123456</td>
		<td>Emisă la: 05.01.2024</td>
		<td>Scadentă la: 25.01.2024</td>
		<td>154 kWh</td>
		<td>245,67 lei</td>
		<td>0,00 lei</td>
		<td>Status: Plătită</td>
		<td><a href="/download/factura-123456.pdf">PDF</a></td>
	</tr>`
}

func gasRow() string {
	return `<tr>
		<td>Factura receipt 654321</td>
		<td>Emisă la: 10.02.2024</td>
		<td>Scadentă la: 28.02.2024</td>
		<td>820 kWh</td>
		<td>512,40 lei</td>
		<td>512,40 lei</td>
		<td>Status: Neplătită</td>
		<td><a href="/download/factura-gaz-654321.pdf">PDF</a></td>
	</tr>`
}

func TestExtractFromHTML_CompleteRow(t *testing.T) {
	invoices, err := newTestExtractor().ExtractFromHTML("<table>" + electricityRow() + "</table>")
	require.NoError(t, err)
	require.Len(t, invoices, 1)

	inv := invoices[0]
	assert.Equal(t, "123456", inv.InvoiceNumber)
	assert.Equal(t, "05.01.2024", inv.IssueDate)
	assert.Equal(t, "25.01.2024", inv.DueDate)
	assert.Equal(t, "154", inv.EnergyConsumption)
	assert.Equal(t, "245,67", inv.Amount)
	assert.Equal(t, "0,00", inv.RemainingPayment)
	assert.Equal(t, "Plătită", inv.Status)
	assert.Equal(t, "/download/factura-123456.pdf", inv.DownloadURL)
	assert.Equal(t, models.InvoiceTypeElectricity, inv.Type)
}

func TestExtractFromHTML_MultipleRows(t *testing.T) {
	html := `<table>
		<tr><th>Factura</th><th>Emisa</th><th>Scadenta</th><th>Consum</th><th>Valoare</th><th>Rest</th><th>Status</th><th>Descarca</th></tr>` +
		electricityRow() + gasRow() +
		`<tr><td>Sold total</td><td>757,07 lei</td></tr>
	</table>`

	invoices, err := newTestExtractor().ExtractFromHTML(html)
	require.NoError(t, err)
	require.Len(t, invoices, 2)

	assert.Equal(t, models.InvoiceTypeElectricity, invoices[0].Type)
	assert.Equal(t, models.InvoiceTypeGas, invoices[1].Type)
	assert.Equal(t, "654321", invoices[1].InvoiceNumber)
}

func TestExtractFromHTML_DropsMalformedRowKeepsOrder(t *testing.T) {
	// Three invoice-shaped rows; the middle one has no amount anywhere and
	// must be dropped without disturbing the others.
	noAmountRow := `<tr>
		<td>Factura receipt 111111</td>
		<td>Emisă la: 01.01.2024</td>
		<td>Scadentă la: 15.01.2024</td>
		<td>90 kWh</td>
		<td></td>
		<td></td>
		<td>Status: Plătită</td>
		<td><a href="/download/factura-111111.pdf">PDF</a></td>
	</tr>`

	html := "<table>" + electricityRow() + noAmountRow + gasRow() + "</table>"
	invoices, err := newTestExtractor().ExtractFromHTML(html)
	require.NoError(t, err)
	require.Len(t, invoices, 2)

	assert.Equal(t, "123456", invoices[0].InvoiceNumber)
	assert.Equal(t, models.InvoiceTypeElectricity, invoices[0].Type)
	assert.Equal(t, "654321", invoices[1].InvoiceNumber)
	assert.Equal(t, models.InvoiceTypeGas, invoices[1].Type)
}

func TestExtractFromHTML_Idempotent(t *testing.T) {
	ext := newTestExtractor()
	html := "<table>" + electricityRow() + gasRow() + "</table>"

	first, err := ext.ExtractFromHTML(html)
	require.NoError(t, err)
	second, err := ext.ExtractFromHTML(html)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestParseRow_TooFewCells(t *testing.T) {
	row := TableRow{Cells: []Cell{
		{Text: "Factura receipt 123456"},
		{Text: "05.01.2024"},
		{Text: "25.01.2024"},
	}}
	assert.Nil(t, ParseRow(row))
}

func TestParseRow_NoInvoiceMarker(t *testing.T) {
	row := TableRow{Cells: make([]Cell, minRowCells)}
	for i := range row.Cells {
		row.Cells[i] = Cell{Text: "filler"}
	}
	assert.Nil(t, ParseRow(row))
}

func TestParseRow_LabeledDatesWinOverPlain(t *testing.T) {
	row := TableRow{Cells: []Cell{
		{Text: "receipt 777"},
		{Text: "Emisă la: 01.03.2024"},
		{Text: "Scadentă la: 15.03.2024"},
		{Text: "02.02.2024"},
		{Text: "16.02.2024"},
		{Text: "100,00 lei"},
		{Text: "Status: Plătită"},
		{Text: ""},
	}}
	inv := ParseRow(row)
	require.NotNil(t, inv)
	assert.Equal(t, "01.03.2024", inv.IssueDate)
	assert.Equal(t, "15.03.2024", inv.DueDate)
}

func TestParseRow_PlainDatesFillInOrder(t *testing.T) {
	row := TableRow{Cells: []Cell{
		{Text: "receipt 778"},
		{Text: "02.02.2024"},
		{Text: "16.02.2024"},
		{Text: "50 kWh"},
		{Text: "100,00 lei"},
		{Text: "0,00 lei"},
		{Text: "Status: Plătită"},
		{Text: ""},
	}}
	inv := ParseRow(row)
	require.NotNil(t, inv)
	assert.Equal(t, "02.02.2024", inv.IssueDate)
	assert.Equal(t, "16.02.2024", inv.DueDate)
}

func TestParseRow_CurrencyCellsAssignedInOrder(t *testing.T) {
	row := TableRow{Cells: []Cell{
		{Text: "receipt 779"},
		{Text: "02.02.2024"},
		{Text: "16.02.2024"},
		{Text: "50 kWh"},
		{Text: "321,50 lei"},
		{Text: "120,00 lei"},
		{Text: "Status: Neplătită"},
		{Text: ""},
	}}
	inv := ParseRow(row)
	require.NotNil(t, inv)
	assert.Equal(t, "321,50", inv.Amount)
	assert.Equal(t, "120,00", inv.RemainingPayment)
}

func TestParseRow_DownloadLinkOnlyFromDownloadCell(t *testing.T) {
	row := TableRow{Cells: []Cell{
		{Text: "receipt 780", Hrefs: []string{"/nav/facturi-arhiva.pdf"}},
		{Text: "02.02.2024"},
		{Text: "16.02.2024"},
		{Text: "50 kWh"},
		{Text: "100,00 lei"},
		{Text: "0,00 lei"},
		{Text: "Status: Plătită"},
		{Text: "PDF", Hrefs: []string{"/terms.pdf", "/download/factura-780.pdf"}},
	}}
	inv := ParseRow(row)
	require.NotNil(t, inv)
	assert.Equal(t, "/download/factura-780.pdf", inv.DownloadURL)
}

func TestParseRow_MissingDownloadURLDefaultsToElectricity(t *testing.T) {
	row := TableRow{Cells: []Cell{
		{Text: "receipt 781"},
		{Text: "02.02.2024"},
		{Text: "16.02.2024"},
		{Text: "50 kWh"},
		{Text: "100,00 lei"},
		{Text: "0,00 lei"},
		{Text: "Status: Plătită"},
		{Text: ""},
	}}
	inv := ParseRow(row)
	require.NotNil(t, inv)
	assert.Empty(t, inv.DownloadURL)
	assert.Equal(t, models.InvoiceTypeElectricity, inv.Type)
}

func TestExtractFromHTML_DropsRowsMissingCoreFields(t *testing.T) {
	// Marker present but no dates or amount anywhere in the row.
	html := `<table><tr>
		<td>receipt 900</td><td>a</td><td>b</td><td>c</td>
		<td>d</td><td>e</td><td>f</td><td>g</td>
	</tr></table>`

	invoices, err := newTestExtractor().ExtractFromHTML(html)
	require.NoError(t, err)
	assert.Empty(t, invoices)
}

func TestCollectRows_FlattensTextAndLinks(t *testing.T) {
	html := `<table><tr>
		<td>  spaced
			out  text </td>
		<td><a href="/one.pdf">one</a><a href="/two.pdf">two</a></td>
	</tr></table>`

	doc := mustParse(t, html)
	rows := CollectRows(doc)
	require.Len(t, rows, 1)
	require.Len(t, rows[0].Cells, 2)
	assert.Equal(t, "spaced out text", rows[0].Cells[0].Text)
	assert.Equal(t, []string{"/one.pdf", "/two.pdf"}, rows[0].Cells[1].Hrefs)
}
