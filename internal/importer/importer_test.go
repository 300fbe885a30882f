package importer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reckon-dev/reckon/internal/model"
)

const genericCSV = `source,external_id,date,amount,counterparty,account
crm,inv-100,2024-05-14,"$1,250.00",ACME CONSULTING,acct-1
bank,stmt-7,2024-05-15,(45.00),POS PURCHASE CENTEX 1234****5678,acct-1
crm,inv-101,2024-13-40,10.00,BROKEN DATE,acct-2
crm,,2024-05-16,10.00,NO EXTERNAL ID,acct-2
`

func TestGenericParser_Parse(t *testing.T) {
	p := &GenericParser{}
	res, err := p.Parse(strings.NewReader(genericCSV))
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	require.Len(t, res.Quarantine, 2)

	first := res.Records[0]
	assert.Equal(t, "crm", first.SourceSystem)
	assert.Equal(t, "inv-100", first.ExternalID)
	assert.Equal(t, "1250.00", first.Amount.StringFixed(2))
	assert.Equal(t, "ACME CONSULTING", first.CounterpartyCanon)
	assert.Equal(t, model.RecordActive, first.Status)

	second := res.Records[1]
	assert.Equal(t, "-45.00", second.Amount.StringFixed(2))
	assert.Equal(t, "CENTEX", second.CounterpartyCanon)
}

func TestGenericParser_QuarantinesBadRows(t *testing.T) {
	p := &GenericParser{}
	res, err := p.Parse(strings.NewReader(genericCSV))
	require.NoError(t, err)
	require.Len(t, res.Quarantine, 2)

	badDate := res.Quarantine[0]
	assert.Equal(t, model.RecordQuarantined, badDate.Status)
	assert.Contains(t, badDate.QuarantineReason, "date")
	assert.Equal(t, "inv-101", badDate.ExternalID)

	noID := res.Quarantine[1]
	assert.Contains(t, noID.QuarantineReason, "external id")
}

func TestGenericParser_EmptyFile(t *testing.T) {
	p := &GenericParser{}
	res, err := p.Parse(strings.NewReader("source,external_id,date,amount,counterparty,account\n"))
	require.NoError(t, err)
	assert.Empty(t, res.Records)
	assert.Empty(t, res.Quarantine)
}

const posCSV = `txn_id,timestamp,gross_cents,terminal
pos-9001,2024-05-14T09:30:00Z,1899,TERMINAL 4
pos-9002,2024-05-14T11:05:00Z,250,TERMINAL 4
pos-9003,not-a-timestamp,100,TERMINAL 4
pos-9004,2024-05-14T12:00:00Z,12.5,TERMINAL 4
`

func TestPOSParser_Parse(t *testing.T) {
	p := &POSParser{}
	res, err := p.Parse(strings.NewReader(posCSV))
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	require.Len(t, res.Quarantine, 2)

	first := res.Records[0]
	assert.Equal(t, "pos", first.SourceSystem)
	assert.Equal(t, "pos-9001", first.ExternalID)
	assert.Equal(t, "18.99", first.Amount.StringFixed(2))
	assert.Equal(t, 14, first.OccurredOn.Day())
	assert.Equal(t, "TERMINAL 4", first.AccountRef)

	badTS := res.Quarantine[0]
	assert.Contains(t, badTS.QuarantineReason, "date")
	fractional := res.Quarantine[1]
	assert.Contains(t, fractional.QuarantineReason, "amount")
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.NotNil(t, r.Get("generic"))
	assert.NotNil(t, r.Get("POS"))
	assert.Nil(t, r.Get("chase"))

	assert.Panics(t, func() { r.Register(&GenericParser{}) })
}

func TestScanAndMarkProcessed(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "import"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "import", "batch.csv"), []byte(genericCSV), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "import", "notes.txt"), []byte("skip"), 0o644))

	files, err := Scan(root)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "batch.csv", files[0].Name)

	require.NoError(t, MarkProcessed(root, "batch.csv"))
	files, err = Scan(root)
	require.NoError(t, err)
	assert.Empty(t, files)

	_, err = os.Stat(filepath.Join(root, "import", "processed", "batch.csv"))
	assert.NoError(t, err)
}

func TestScan_MissingDir(t *testing.T) {
	files, err := Scan(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, files)
}
