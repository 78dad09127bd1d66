package scraper

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"

	"github.com/Ioioiog/engie-scraper/internal/logger"
	"github.com/Ioioiog/engie-scraper/internal/models"
)

// Romanian labels used by the portal's invoice table. Label matching is
// substring-based because the portal wraps them in varying markup.
const (
	labelIssueDate   = "Emisă la:"
	labelDueDate     = "Scadentă la:"
	labelConsumption = "Consum energie:"
	labelAmount      = "Valoare factură:"
	labelRemaining   = "Rest de plată:"
	labelStatus      = "Status:"

	// invoiceMarker precedes the invoice number in one of the row's cells.
	invoiceMarker = "receipt"

	// downloadCellIndex is the fixed position of the cell carrying the PDF
	// link; links elsewhere in the row are navigation chrome, not downloads.
	downloadCellIndex = 7
	downloadKeyword   = "factur"

	minRowCells = 8
)

var (
	reInvoiceNumber = regexp.MustCompile(invoiceMarker + `\s*(\d+)`)
	rePlainDate     = regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4}$`)
	reDate          = regexp.MustCompile(`\d{2}\.\d{2}\.\d{4}`)
	rePlainKWh      = regexp.MustCompile(`^[\d.,]+\s*kWh$`)
	rePlainCurrency = regexp.MustCompile(`^[\d.,]+\s*lei$`)
	reNumeric       = regexp.MustCompile(`[\d.,]+`)
	reWhitespace    = regexp.MustCompile(`\s+`)
)

// Cell is one table cell reduced to what extraction needs: its collapsed
// text and the hrefs of any anchors inside it.
type Cell struct {
	Text  string
	Hrefs []string
}

// TableRow is a flat view of one <tr>.
type TableRow struct {
	Cells []Cell
}

// Extractor turns the invoices page's table into validated invoices.
type Extractor struct {
	logger *logrus.Entry
}

// NewExtractor creates a new extractor
func NewExtractor(log *logrus.Logger) *Extractor {
	return &Extractor{
		logger: logger.WithComponent(log, "extractor"),
	}
}

// Extract reads the invoice table off the live page and parses it.
func (e *Extractor) Extract(ctx context.Context) ([]models.Invoice, error) {
	var html string
	if err := chromedp.Run(ctx, chromedp.OuterHTML(selInvoiceTable, &html, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("failed to read invoice table: %w", err)
	}
	return e.ExtractFromHTML(html)
}

// ExtractFromHTML parses invoice rows out of table HTML. Rows that do not
// look like invoices are dropped with a debug log; only rows passing both
// validation passes are returned. The function is pure with respect to its
// input and safe to call repeatedly.
func (e *Extractor) ExtractFromHTML(html string) ([]models.Invoice, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse invoice table HTML: %w", err)
	}

	rows := CollectRows(doc)
	invoices := make([]models.Invoice, 0, len(rows))
	for i, row := range rows {
		inv := e.parseRowSafe(i, row)
		if inv == nil {
			continue
		}
		if !inv.HasCoreFields() {
			e.logger.WithField("row", i).Debug("Row dropped: missing core fields")
			continue
		}
		if err := inv.Validate(); err != nil {
			e.logger.WithField("row", i).WithError(err).Debug("Row dropped: validation failed")
			continue
		}
		invoices = append(invoices, *inv)
	}

	e.logger.WithFields(logrus.Fields{
		"rows":     len(rows),
		"invoices": len(invoices),
	}).Info("Invoice extraction complete")
	return invoices, nil
}

// CollectRows flattens the document's table rows into text and links.
func CollectRows(doc *goquery.Document) []TableRow {
	var rows []TableRow
	doc.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var row TableRow
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			cell := Cell{Text: collapseSpace(td.Text())}
			td.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
				if href, ok := a.Attr("href"); ok {
					cell.Hrefs = append(cell.Hrefs, href)
				}
			})
			row.Cells = append(row.Cells, cell)
		})
		rows = append(rows, row)
	})
	return rows
}

// parseRowSafe contains per-row panics so one malformed row cannot take
// down the whole extraction.
func (e *Extractor) parseRowSafe(index int, row TableRow) (inv *models.Invoice) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.WithFields(logrus.Fields{"row": index, "panic": r}).Warn("Row parse panicked, dropping row")
			inv = nil
		}
	}()
	return ParseRow(row)
}

// ParseRow extracts a single invoice from a flattened row, or nil when the
// row does not carry one. Dates prefer labeled cells over bare-date cells;
// numeric fields prefer bare-value cells over labeled ones because the
// portal duplicates them in summary labels with stale values.
func ParseRow(row TableRow) *models.Invoice {
	if len(row.Cells) < minRowCells {
		return nil
	}

	inv := &models.Invoice{}

	for _, cell := range row.Cells {
		if m := reInvoiceNumber.FindStringSubmatch(cell.Text); m != nil {
			inv.InvoiceNumber = m[1]
			break
		}
	}
	if inv.InvoiceNumber == "" {
		return nil
	}

	inv.IssueDate, inv.DueDate = extractDates(row)
	inv.EnergyConsumption = extractConsumption(row)
	inv.Amount, inv.RemainingPayment = extractCurrency(row)
	inv.Status = extractLabeled(row, labelStatus)
	inv.DownloadURL = extractDownloadURL(row)
	inv.Type = models.InferInvoiceType(inv.DownloadURL)

	return inv
}

// extractDates resolves issue and due dates. Labeled cells win; bare-date
// cells fill whatever the labels did not, in document order.
func extractDates(row TableRow) (issue, due string) {
	if text := extractLabeled(row, labelIssueDate); text != "" {
		issue = reDate.FindString(text)
	}
	if text := extractLabeled(row, labelDueDate); text != "" {
		due = reDate.FindString(text)
	}

	var plain []string
	for _, cell := range row.Cells {
		if rePlainDate.MatchString(cell.Text) {
			plain = append(plain, cell.Text)
		}
	}
	if issue == "" && len(plain) > 0 {
		issue = plain[0]
	}
	if due == "" && len(plain) > 1 {
		due = plain[1]
	}
	return issue, due
}

func extractConsumption(row TableRow) string {
	for _, cell := range row.Cells {
		if rePlainKWh.MatchString(cell.Text) {
			return reNumeric.FindString(cell.Text)
		}
	}
	if text := extractLabeled(row, labelConsumption); text != "" {
		return reNumeric.FindString(text)
	}
	return ""
}

// extractCurrency assigns bare currency cells in document order: the first
// is the invoice amount, the second the remaining balance. The two fields
// share one textual shape, so position is the only distinguisher.
func extractCurrency(row TableRow) (amount, remaining string) {
	var plain []string
	for _, cell := range row.Cells {
		if rePlainCurrency.MatchString(cell.Text) {
			plain = append(plain, reNumeric.FindString(cell.Text))
		}
	}
	if len(plain) > 0 {
		amount = plain[0]
	}
	if len(plain) > 1 {
		remaining = plain[1]
	}

	if amount == "" {
		if text := extractLabeled(row, labelAmount); text != "" {
			amount = reNumeric.FindString(text)
		}
	}
	if remaining == "" {
		if text := extractLabeled(row, labelRemaining); text != "" {
			remaining = reNumeric.FindString(text)
		}
	}
	return amount, remaining
}

// extractLabeled finds the first cell containing the label and returns the
// cell text with the label stripped.
func extractLabeled(row TableRow, label string) string {
	for _, cell := range row.Cells {
		if idx := strings.Index(cell.Text, label); idx >= 0 {
			return strings.TrimSpace(cell.Text[idx+len(label):])
		}
	}
	return ""
}

// extractDownloadURL looks only at the fixed download cell and only at
// links that name an invoice PDF.
func extractDownloadURL(row TableRow) string {
	if len(row.Cells) <= downloadCellIndex {
		return ""
	}
	for _, href := range row.Cells[downloadCellIndex].Hrefs {
		lower := strings.ToLower(href)
		if strings.Contains(lower, downloadKeyword) && strings.Contains(lower, ".pdf") {
			return href
		}
	}
	return ""
}

func collapseSpace(s string) string {
	return strings.TrimSpace(reWhitespace.ReplaceAllString(s, " "))
}
