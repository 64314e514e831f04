package text

import (
	"context"
	"testing"

	"trustbooks/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func newTestExtractor() *Extractor {
	return NewExtractor(zap.NewNop())
}

func TestExtract_CSVStatement(t *testing.T) {
	data := []byte("date,description,debit,credit,balance\n" +
		"15/01/2024,UPI/Coffee House,250.00,,10250.00\n" +
		"16/01/2024,Salary,,50000.00,60250.00\n")

	doc, err := newTestExtractor().Extract(context.Background(), "statement.csv", data)
	require.NoError(t, err)

	assert.Equal(t, FormatCSV, doc.Format)
	assert.True(t, doc.HasContent())
	require.Len(t, doc.Table, 3)
	assert.Equal(t, []string{"date", "description", "debit", "credit", "balance"}, doc.Table[0])
	assert.Equal(t, "UPI/Coffee House", doc.Table[1][1])
	assert.Empty(t, doc.Preamble)
	assert.Contains(t, doc.Text, "date | description | debit | credit | balance")
}

func TestExtract_CSVWithPreambleAndSemicolons(t *testing.T) {
	data := []byte("Account Name;John Doe\n" +
		"Account No;000123456789\n" +
		"\n" +
		"Txn Date;Narration;Withdrawal Amt.;Deposit Amt.;Closing Balance\n" +
		"01-02-2024;NEFT-ACME;1000;;9000\n")

	doc, err := newTestExtractor().Extract(context.Background(), "s.csv", data)
	require.NoError(t, err)

	assert.Equal(t, []string{"Account Name John Doe", "Account No 000123456789"}, doc.Preamble)
	require.Len(t, doc.Table, 2)
	assert.Equal(t, "Txn Date", doc.Table[0][0])
	assert.Equal(t, "NEFT-ACME", doc.Table[1][1])
}

func TestExtract_CSVByteOrderMark(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, "date,description,debit,credit,balance\n15/01/2024,Rent,250,,10250\n"...)

	doc, err := newTestExtractor().Extract(context.Background(), "bom.csv", data)
	require.NoError(t, err)
	require.Len(t, doc.Table, 2)
	assert.Equal(t, "date", doc.Table[0][0])
}

func TestExtract_CSVRaggedRows(t *testing.T) {
	data := []byte("a,b,c\n1,2\n3,\"4,5\",6,7\n")

	doc, err := newTestExtractor().Extract(context.Background(), "x.csv", data)
	require.NoError(t, err)
	assert.Len(t, doc.Table, 3)
}

func TestExtract_EmptyFile(t *testing.T) {
	doc, err := newTestExtractor().Extract(context.Background(), "empty.pdf", nil)
	require.NoError(t, err)
	assert.False(t, doc.HasContent())
	assert.Equal(t, FormatPDF, doc.Format)
}

func TestExtract_UnsupportedExtension(t *testing.T) {
	_, err := newTestExtractor().Extract(context.Background(), "photo.png", []byte("x"))
	var parseErr *apperrors.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestExtract_XLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Bank of Testing"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"Date", "Description", "Debit", "Credit", "Balance"}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]any{"2024-03-01", "ATM WDL", "500", "", "1500"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	doc, err := newTestExtractor().Extract(context.Background(), "book.XLSX", buf.Bytes())
	require.NoError(t, err)

	assert.Equal(t, FormatXLSX, doc.Format)
	assert.Equal(t, []string{"Bank of Testing"}, doc.Preamble)
	require.Len(t, doc.Table, 2)
	assert.Equal(t, "ATM WDL", doc.Table[1][1])
}

func TestExtract_CorruptXLSX(t *testing.T) {
	_, err := newTestExtractor().Extract(context.Background(), "broken.xlsx", []byte("not a zip"))
	var parseErr *apperrors.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestSniffDelimiter(t *testing.T) {
	assert.Equal(t, '\t', sniffDelimiter("a\tb\tc\n1\t2\t3\n"))
	assert.Equal(t, '|', sniffDelimiter("a|b|c\n1|2|3\n"))
	assert.Equal(t, ',', sniffDelimiter("just one line"))
}

func TestSplitHeader_NoHeaderUsesFirstRow(t *testing.T) {
	preamble, table := splitHeader([][]string{{"x", "y"}, {"1", "2"}})
	assert.Empty(t, preamble)
	assert.Len(t, table, 2)
}
