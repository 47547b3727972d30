package services

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"supply_map_backend/internal/models"
	"supply_map_backend/internal/repositories"
)

// --- In-memory repository fakes ---

type fakeSiteRepo struct{}

func (f *fakeSiteRepo) GetSiteByID(id int64) (*models.Site, error) {
	if id == 1 {
		return &models.Site{ID: 1, Name: "Jardim", Active: true}, nil
	}
	return nil, repositories.ErrNotFound
}
func (f *fakeSiteRepo) GetLocationByID(id int64) (*models.SiteLocation, error) {
	return nil, repositories.ErrNotFound
}
func (f *fakeSiteRepo) LocationBelongsToSite(locationID, siteID int64) (bool, error) {
	return true, nil
}
func (f *fakeSiteRepo) ListSites(onlyActive bool) ([]models.Site, error) { return nil, nil }
func (f *fakeSiteRepo) ListLocations(siteID int64) ([]models.SiteLocation, error) {
	return nil, nil
}

type fakeMaterialRepo struct {
	byCode  map[string]*models.Material
	created int
}

func (f *fakeMaterialRepo) Create(m *models.Material) (int64, error) {
	f.created++
	return 0, nil
}
func (f *fakeMaterialRepo) GetByID(id int64) (*models.Material, error) {
	for _, m := range f.byCode {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, repositories.ErrNotFound
}
func (f *fakeMaterialRepo) GetByExternalCode(code string) (*models.Material, error) {
	if m, ok := f.byCode[code]; ok {
		return m, nil
	}
	return nil, repositories.ErrNotFound
}
func (f *fakeMaterialRepo) List(onlyActive bool, search string) ([]models.Material, error) {
	return nil, nil
}
func (f *fakeMaterialRepo) Update(m *models.Material) error { return nil }
func (f *fakeMaterialRepo) CodeMap(codes []string) (map[string]*models.Material, error) {
	result := map[string]*models.Material{}
	for _, code := range codes {
		if m, ok := f.byCode[code]; ok {
			result[code] = m
		}
	}
	return result, nil
}
func (f *fakeMaterialRepo) IsReferencedByReceipt(id int64) (bool, error) { return false, nil }

type fakeReceiptRepo struct {
	rows      []*models.ReceiptEntry
	allocated map[int64]decimal.Decimal
	nextID    int64
}

func (f *fakeReceiptRepo) key(siteID int64, request string, materialID int64, lineID string) string {
	return fmt.Sprintf("%d|%s|%d|%s", siteID, request, materialID, lineID)
}
func (f *fakeReceiptRepo) find(siteID int64, request string, materialID int64, lineID string) *models.ReceiptEntry {
	for _, r := range f.rows {
		if r.SiteID == siteID && r.RequestNumber == request && r.MaterialID == materialID && r.RequestLineID == lineID {
			return r
		}
	}
	return nil
}
func (f *fakeReceiptRepo) GetByID(id int64) (*models.ReceiptEntry, error) {
	for _, r := range f.rows {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, repositories.ErrNotFound
}
func (f *fakeReceiptRepo) GetByIDForUpdate(tx repositories.SQLExecutor, id int64) (*models.ReceiptEntry, error) {
	return f.GetByID(id)
}
func (f *fakeReceiptRepo) ListBySite(siteID int64, requestNumber string) ([]models.ReceiptEntry, error) {
	return nil, nil
}
func (f *fakeReceiptRepo) FindByKey(siteID int64, request string, materialID int64, lineID string) (*models.ReceiptEntry, error) {
	if r := f.find(siteID, request, materialID, lineID); r != nil {
		return r, nil
	}
	return nil, repositories.ErrNotFound
}
func (f *fakeReceiptRepo) Upsert(exec repositories.SQLExecutor, entry *models.ReceiptEntry) (bool, error) {
	if existing := f.find(entry.SiteID, entry.RequestNumber, entry.MaterialID, entry.RequestLineID); existing != nil {
		id := existing.ID
		*existing = *entry
		existing.ID = id
		entry.ID = id
		return false, nil
	}
	f.nextID++
	entry.ID = f.nextID
	stored := *entry
	f.rows = append(f.rows, &stored)
	return true, nil
}
func (f *fakeReceiptRepo) UpdateReceivedGuarded(exec repositories.SQLExecutor, id int64, newReceived decimal.Decimal) (bool, error) {
	r, err := f.GetByID(id)
	if err != nil {
		return false, err
	}
	if newReceived.LessThan(f.allocated[id]) {
		return false, nil
	}
	r.ReceivedQuantity = newReceived
	return true, nil
}
func (f *fakeReceiptRepo) LockLinesForKey(tx repositories.SQLExecutor, siteID int64, request string, materialID int64) ([]models.ReceiptEntry, error) {
	return nil, nil
}

type fakePlannedNeedRepo struct {
	needs []*models.PlannedNeed
}

func (f *fakePlannedNeedRepo) Create(n *models.PlannedNeed) (int64, error) { return 0, nil }
func (f *fakePlannedNeedRepo) GetByID(id int64) (*models.PlannedNeed, error) {
	for _, n := range f.needs {
		if n.ID == id {
			return n, nil
		}
	}
	return nil, repositories.ErrNotFound
}
func (f *fakePlannedNeedRepo) List(filters models.PlannedNeedFilters) ([]models.PlannedNeed, int, error) {
	return nil, 0, nil
}
func (f *fakePlannedNeedRepo) Update(n *models.PlannedNeed) error { return nil }
func (f *fakePlannedNeedRepo) Delete(id int64) error              { return nil }
func (f *fakePlannedNeedRepo) FindForLink(siteID, materialID int64, requestNumber string) ([]models.PlannedNeed, error) {
	var matches []models.PlannedNeed
	for _, n := range f.needs {
		if n.SiteID != siteID || n.MaterialID != materialID {
			continue
		}
		if n.RequestNumber == requestNumber || n.RequestNumber == "" {
			matches = append(matches, *n)
		}
	}
	return matches, nil
}
func (f *fakePlannedNeedRepo) UpdateProcurementRefs(updated *models.PlannedNeed) error {
	for _, n := range f.needs {
		if n.ID == updated.ID {
			n.RequestNumber = updated.RequestNumber
			n.PurchaseOrderNumber = updated.PurchaseOrderNumber
			n.SupplierName = updated.SupplierName
			n.ExpectedDate = updated.ExpectedDate
			n.RemainingBalance = updated.RemainingBalance
			return nil
		}
	}
	return repositories.ErrNotFound
}

type fakeAllocationRepo struct {
	sumByKey    map[string]decimal.Decimal
	byNeed      map[int64][]models.Allocation
	createCalls int
}

func (f *fakeAllocationRepo) Create(exec repositories.SQLExecutor, a *models.Allocation) (int64, error) {
	f.createCalls++
	return 0, nil
}
func (f *fakeAllocationRepo) GetByID(id int64) (*models.Allocation, error) {
	return nil, repositories.ErrNotFound
}
func (f *fakeAllocationRepo) Delete(exec repositories.SQLExecutor, id int64) error { return nil }
func (f *fakeAllocationRepo) SumByReceipt(exec repositories.SQLExecutor, receiptID int64) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
func (f *fakeAllocationRepo) SumByRequestKey(exec repositories.SQLExecutor, siteID int64, request string, materialID int64) (decimal.Decimal, error) {
	return f.sumByKey[fmt.Sprintf("%d|%s|%d", siteID, request, materialID)], nil
}
func (f *fakeAllocationRepo) ListByPlannedNeed(plannedNeedID int64) ([]models.Allocation, error) {
	return f.byNeed[plannedNeedID], nil
}
func (f *fakeAllocationRepo) SumByPlannedNeed(plannedNeedID int64) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, a := range f.byNeed[plannedNeedID] {
		total = total.Add(a.AllocatedQuantity)
	}
	return total, nil
}

type fakeImportBatchRepo struct {
	batches []*models.ImportBatch
	nextID  int64
}

func (f *fakeImportBatchRepo) FindBySiteAndHash(siteID int64, hash string) (*models.ImportBatch, error) {
	for _, b := range f.batches {
		if b.SiteID == siteID && b.ContentHash == hash {
			return b, nil
		}
	}
	return nil, repositories.ErrNotFound
}
func (f *fakeImportBatchRepo) Create(b *models.ImportBatch) (int64, error) {
	f.nextID++
	b.ID = f.nextID
	b.CreatedAt = time.Now()
	stored := *b
	f.batches = append(f.batches, &stored)
	return b.ID, nil
}
func (f *fakeImportBatchRepo) ListBySite(siteID int64, limit int) ([]models.ImportBatch, error) {
	return nil, nil
}

type fakeChangeLogRepo struct {
	entries []*models.ChangeLogEntry
}

func (f *fakeChangeLogRepo) Create(exec repositories.SQLExecutor, e *models.ChangeLogEntry) (int64, error) {
	f.entries = append(f.entries, e)
	return int64(len(f.entries)), nil
}
func (f *fakeChangeLogRepo) List(filters repositories.ChangeLogFilters) ([]models.ChangeLogEntry, int, error) {
	return nil, 0, nil
}

// --- Test harness ---

type importFixture struct {
	materials *fakeMaterialRepo
	receipts  *fakeReceiptRepo
	needs     *fakePlannedNeedRepo
	allocs    *fakeAllocationRepo
	batches   *fakeImportBatchRepo
	changeLog *fakeChangeLogRepo
	service   ImportService
}

func newImportFixture() *importFixture {
	f := &importFixture{
		materials: &fakeMaterialRepo{byCode: map[string]*models.Material{
			"CIM": {ID: 10, ExternalCode: "CIM", Description: "CIMENTO CP-II"},
			"BLK": {ID: 11, ExternalCode: "BLK", Description: "BLOCO CERAMICO"},
		}},
		receipts:  &fakeReceiptRepo{allocated: map[int64]decimal.Decimal{}},
		needs:     &fakePlannedNeedRepo{},
		allocs:    &fakeAllocationRepo{sumByKey: map[string]decimal.Decimal{}},
		batches:   &fakeImportBatchRepo{},
		changeLog: &fakeChangeLogRepo{},
	}
	f.service = NewImportService(f.materials, f.receipts, f.needs, f.allocs, f.batches, f.changeLog, &fakeSiteRepo{}, nil)
	return f
}

const sampleCSV = `Solicitação;Item;Código;Descrição;Qtd Solicitada;Qtd Recebida;Pedido;Fornecedor
SC-1;1;CIM;CIMENTO CP-II;4000;4000;PC-9;ACME
SC-1;2;CIM;CIMENTO CP-II;4000;4000;PC-9;ACME
SC-1;3;CIM;CIMENTO CP-II;4000;4000;PC-9;ACME
SC-1;4;BLK;BLOCO CERAMICO;500;500;PC-9;ACME
`

func TestImportFileCreatesConsolidatedReceipts(t *testing.T) {
	f := newImportFixture()

	report, err := f.service.ImportFile(1, "recebimentos.csv", []byte(sampleCSV), "alice")
	if err != nil {
		t.Fatalf("ImportFile error: %v", err)
	}
	if report.Created != 2 {
		t.Errorf("created = %d, want 2", report.Created)
	}
	if report.Updated != 0 || report.Rejected != 0 {
		t.Errorf("updated/rejected = %d/%d, want 0/0", report.Updated, report.Rejected)
	}

	cim := f.receipts.find(1, "SC-1", 10, "")
	if cim == nil {
		t.Fatal("no consolidated receipt for CIM")
	}
	if !cim.ReceivedQuantity.Equal(decimal.NewFromInt(4000)) {
		t.Errorf("CIM received = %s, want 4000 (max, not 12000)", cim.ReceivedQuantity)
	}
	if cim.PurchaseOrderNumber != "PC-9" || cim.SupplierName != "ACME" {
		t.Errorf("procurement refs not carried: %q %q", cim.PurchaseOrderNumber, cim.SupplierName)
	}
}

func TestImportFileIsIdempotent(t *testing.T) {
	f := newImportFixture()
	data := []byte(sampleCSV)

	first, err := f.service.ImportFile(1, "recebimentos.csv", data, "alice")
	if err != nil {
		t.Fatalf("first import error: %v", err)
	}
	rowsAfterFirst := len(f.receipts.rows)

	second, err := f.service.ImportFile(1, "recebimentos.csv", data, "alice")
	if err != nil {
		t.Fatalf("second import error: %v", err)
	}
	if !second.SkippedDuplicate {
		t.Error("second import of identical bytes should be skipped")
	}
	if second.Created != 0 || second.Updated != 0 {
		t.Errorf("second import wrote rows: created=%d updated=%d", second.Created, second.Updated)
	}
	if len(f.receipts.rows) != rowsAfterFirst {
		t.Errorf("receipt rows changed on duplicate import: %d -> %d", rowsAfterFirst, len(f.receipts.rows))
	}
	if second.BatchID != first.BatchID {
		t.Errorf("duplicate report should reference the original batch %d, got %d", first.BatchID, second.BatchID)
	}
}

func TestImportFileUnresolvedMaterialSafety(t *testing.T) {
	f := newImportFixture()
	csv := "Solicitação;Código;Qtd Solicitada;Qtd Recebida\n" +
		"SC-2;UNKNOWN;100;50\n"

	report, err := f.service.ImportFile(1, "x.csv", []byte(csv), "alice")
	if err != nil {
		t.Fatalf("ImportFile error: %v", err)
	}
	if report.Created != 0 {
		t.Errorf("created = %d, want 0", report.Created)
	}
	if report.UnresolvedCount != 1 || len(report.Unresolved) != 1 || report.Unresolved[0] != "UNKNOWN" {
		t.Errorf("unresolved report = %v (count %d), want [UNKNOWN]", report.Unresolved, report.UnresolvedCount)
	}
	if len(f.receipts.rows) != 0 {
		t.Error("unresolved material must not create a receipt row")
	}
	if f.materials.created != 0 {
		t.Error("unresolved material must not create a catalog entry")
	}
}

func TestImportFileAbortsWhenReceivedColumnMissing(t *testing.T) {
	f := newImportFixture()
	f.receipts.rows = append(f.receipts.rows, &models.ReceiptEntry{
		ID: 1, SiteID: 1, MaterialID: 10, RequestNumber: "SC-3", RequestLineID: "",
		RequestedQuantity: decimal.NewFromInt(100),
		ReceivedQuantity:  decimal.NewFromInt(100),
	})
	f.receipts.nextID = 1

	// No received-quantity column: every row would parse as received 0 and
	// silently wipe the stored quantity, so the import must refuse the file.
	csv := "Solicitação;Código;Qtd Solicitada\n" +
		"SC-3;CIM;100\n"

	_, err := f.service.ImportFile(1, "x.csv", []byte(csv), "alice")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
	if !strings.Contains(err.Error(), "qtd recebida") {
		t.Errorf("error should name the received-quantity synonyms: %v", err)
	}
	row, _ := f.receipts.GetByID(1)
	if !row.ReceivedQuantity.Equal(decimal.NewFromInt(100)) {
		t.Errorf("received = %s, must stay 100 when the import aborts", row.ReceivedQuantity)
	}
	if len(f.batches.batches) != 0 {
		t.Error("a refused file must not record an import batch")
	}
}

func TestImportFileRejectsDecreaseBelowAllocated(t *testing.T) {
	f := newImportFixture()
	f.receipts.rows = append(f.receipts.rows, &models.ReceiptEntry{
		ID: 1, SiteID: 1, MaterialID: 10, RequestNumber: "SC-3", RequestLineID: "",
		RequestedQuantity: decimal.NewFromInt(100),
		ReceivedQuantity:  decimal.NewFromInt(100),
	})
	f.receipts.nextID = 1
	f.receipts.allocated[1] = decimal.NewFromInt(80)

	csv := "Solicitação;Código;Qtd Solicitada;Qtd Recebida\n" +
		"SC-3;CIM;100;50\n"

	report, err := f.service.ImportFile(1, "x.csv", []byte(csv), "alice")
	if err != nil {
		t.Fatalf("ImportFile error: %v", err)
	}
	if report.Rejected != 1 {
		t.Errorf("rejected = %d, want 1", report.Rejected)
	}
	if report.RowErrorCount == 0 || len(report.RowErrors) == 0 {
		t.Fatal("rejection should be reported as a row error")
	}
	if !strings.Contains(report.RowErrors[0].Message, ErrInvariantViolation.Error()) {
		t.Errorf("row error should carry the invariant violation, got: %s", report.RowErrors[0].Message)
	}
	row, _ := f.receipts.GetByID(1)
	if !row.ReceivedQuantity.Equal(decimal.NewFromInt(100)) {
		t.Errorf("received = %s, must stay 100 after rejected decrease", row.ReceivedQuantity)
	}
}

func TestImportFileAcceptsSafeDecrease(t *testing.T) {
	f := newImportFixture()
	f.receipts.rows = append(f.receipts.rows, &models.ReceiptEntry{
		ID: 1, SiteID: 1, MaterialID: 10, RequestNumber: "SC-3", RequestLineID: "",
		RequestedQuantity: decimal.NewFromInt(100),
		ReceivedQuantity:  decimal.NewFromInt(100),
	})
	f.receipts.nextID = 1
	f.receipts.allocated[1] = decimal.NewFromInt(30)

	csv := "Solicitação;Código;Qtd Solicitada;Qtd Recebida\n" +
		"SC-3;CIM;100;50\n"

	report, err := f.service.ImportFile(1, "x.csv", []byte(csv), "alice")
	if err != nil {
		t.Fatalf("ImportFile error: %v", err)
	}
	if report.Rejected != 0 || report.Updated != 1 {
		t.Errorf("rejected/updated = %d/%d, want 0/1", report.Rejected, report.Updated)
	}
	row, _ := f.receipts.GetByID(1)
	if !row.ReceivedQuantity.Equal(decimal.NewFromInt(50)) {
		t.Errorf("received = %s, want 50", row.ReceivedQuantity)
	}
}

func TestImportFileLinksPlannedNeedsWithoutAllocating(t *testing.T) {
	f := newImportFixture()
	f.needs.needs = append(f.needs.needs,
		// Not yet tied to a request: first-time linking.
		&models.PlannedNeed{ID: 1, SiteID: 1, MaterialID: 10, PlannedQuantity: decimal.NewFromInt(500)},
		// Different material, must stay untouched.
		&models.PlannedNeed{ID: 2, SiteID: 1, MaterialID: 99, PlannedQuantity: decimal.NewFromInt(10)},
	)
	f.allocs.sumByKey["1|SC-1|10"] = decimal.NewFromInt(1500)

	csv := "Solicitação;Código;Qtd Solicitada;Qtd Recebida;Pedido;Fornecedor\n" +
		"SC-1;CIM;4000;4000;PC-9;ACME\n"

	report, err := f.service.ImportFile(1, "x.csv", []byte(csv), "alice")
	if err != nil {
		t.Fatalf("ImportFile error: %v", err)
	}
	if report.LinkedPlannedNeeds != 1 {
		t.Errorf("linked = %d, want 1", report.LinkedPlannedNeeds)
	}

	linked := f.needs.needs[0]
	if linked.RequestNumber != "SC-1" || linked.PurchaseOrderNumber != "PC-9" || linked.SupplierName != "ACME" {
		t.Errorf("procurement refs not copied: %+v", linked)
	}
	if !linked.RemainingBalance.Equal(decimal.NewFromInt(2500)) {
		t.Errorf("remaining balance = %s, want 4000-1500=2500", linked.RemainingBalance)
	}
	if f.needs.needs[1].RequestNumber != "" {
		t.Error("unrelated planned need was linked")
	}
	if f.allocs.createCalls != 0 {
		t.Error("linking must never create allocations")
	}
}

func TestImportFileFailsWithoutHeader(t *testing.T) {
	f := newImportFixture()

	_, err := f.service.ImportFile(1, "x.csv", []byte("garbage;data\nmore;garbage\n"), "alice")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
	if !strings.Contains(err.Error(), "solicitacao") {
		t.Errorf("error should name the expected header synonyms: %v", err)
	}
}
