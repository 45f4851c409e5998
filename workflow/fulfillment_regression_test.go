package workflow_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/distfocus/logistics_backend/config"
	"github.com/distfocus/logistics_backend/models"
	"github.com/distfocus/logistics_backend/utils"
	"github.com/distfocus/logistics_backend/workflow"
	"github.com/shopspring/decimal"
)

// End-to-end regression over the reservation / backorder / receiving /
// dispatch chain against real MySQL + Redis containers.
func TestReservationBackorderReceiptDispatchChain(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := utils.SetCorrelationIdInContext(context.Background(), "it-chain-1")

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "logistics_test")
	t.Setenv("SAFETY_STOCK_QTY", "10")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Test")

	wh1, err := models.CreateWarehouse(ctx, &models.NewWarehouse{Code: "WH1", Name: "Preferred"})
	if err != nil {
		t.Fatalf("CreateWarehouse WH1: %v", err)
	}
	wh2, err := models.CreateWarehouse(ctx, &models.NewWarehouse{Code: "WH2", Name: "Fallback"})
	if err != nil {
		t.Fatalf("CreateWarehouse WH2: %v", err)
	}
	product, err := models.CreateProduct(ctx, &models.NewProduct{
		Sku:          "WIDGET-1",
		Name:         "Widget",
		CostPrice:    decimal.NewFromInt(4),
		SellingPrice: decimal.NewFromInt(9),
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	supplier, err := models.CreateSupplier(ctx, &models.NewSupplier{Name: "Acme Supply"})
	if err != nil {
		t.Fatalf("CreateSupplier: %v", err)
	}
	client, err := models.CreateClient(ctx, &models.NewClient{Name: "Shop One"})
	if err != nil {
		t.Fatalf("CreateClient: %v", err)
	}

	// opening stock: 10 in the preferred warehouse, 3 in the fallback
	mustAdjust(t, ctx, product.ID, wh1.ID, 10)
	mustAdjust(t, ctx, product.ID, wh2.ID, 3)

	newOrder := func(qty int) *models.SalesOrder {
		t.Helper()
		order, err := models.CreateSalesOrder(ctx, &models.NewSalesOrder{
			ClientId:             client.ID,
			PreferredWarehouseId: wh1.ID,
			Lines:                []models.NewSoLine{{ProductId: product.ID, Quantity: qty}},
		})
		if err != nil {
			t.Fatalf("CreateSalesOrder(%d): %v", qty, err)
		}
		return order
	}

	// Order 1 (qty 6): fully covered by the preferred warehouse.
	order1 := newOrder(6)
	res1, err := workflow.ProcessOrderReservation(ctx, order1.ID, nil)
	if err != nil {
		t.Fatalf("reserve order1: %v", err)
	}
	if res1.Status != models.SalesOrderStatusReserved {
		t.Fatalf("order1: expected RESERVED, got %s", res1.Status)
	}
	if res1.Lines[0].Reserved != 6 || res1.Lines[0].Shortfall != 0 {
		t.Fatalf("order1: expected 6/0, got %d/%d", res1.Lines[0].Reserved, res1.Lines[0].Shortfall)
	}
	if !res1.FullyReserved || res1.HasBackorders {
		t.Fatalf("order1: expected fully reserved without backorders, got %+v", res1)
	}

	// Order 2 (qty 10): 4 left in preferred, spills 3 from the fallback,
	// backorders the remaining 3 without a replenishment PO.
	order2 := newOrder(10)
	res2, err := workflow.ProcessOrderReservation(ctx, order2.ID, nil)
	if err != nil {
		t.Fatalf("reserve order2: %v", err)
	}
	if res2.Status != models.SalesOrderStatusReserved {
		t.Fatalf("order2: expected RESERVED, got %s", res2.Status)
	}
	if res2.Lines[0].Reserved != 7 || res2.Lines[0].Shortfall != 3 {
		t.Fatalf("order2: expected 7/3, got %d/%d", res2.Lines[0].Reserved, res2.Lines[0].Shortfall)
	}
	if res2.Lines[0].BackorderId == nil {
		t.Fatal("order2: expected a backorder")
	}
	if res2.FullyReserved || !res2.HasBackorders {
		t.Fatalf("order2: expected partial reservation with backorders, got %+v", res2)
	}
	if res2.Lines[0].TriggeredPoNumber != nil {
		t.Fatalf("order2: partial reservation must not trigger a PO, got %s", *res2.Lines[0].TriggeredPoNumber)
	}

	// Order 3 (qty 5): network is dry, zero reserved, backorder + auto PO
	// sized max(shortfall=5, total outstanding=3+5=8) + safety stock 10 = 18.
	order3 := newOrder(5)
	res3, err := workflow.ProcessOrderReservation(ctx, order3.ID, nil)
	if err != nil {
		t.Fatalf("reserve order3: %v", err)
	}
	if res3.Status != models.SalesOrderStatusCreated {
		t.Fatalf("order3: expected CREATED, got %s", res3.Status)
	}
	if res3.Lines[0].Reserved != 0 || res3.Lines[0].Shortfall != 5 {
		t.Fatalf("order3: expected 0/5, got %d/%d", res3.Lines[0].Reserved, res3.Lines[0].Shortfall)
	}
	if res3.Lines[0].TriggeredPoNumber == nil {
		t.Fatal("order3: expected an auto PO")
	}
	if !strings.HasPrefix(*res3.Lines[0].TriggeredPoNumber, "PO-AUTO-") {
		t.Fatalf("order3: expected PO-AUTO number, got %s", *res3.Lines[0].TriggeredPoNumber)
	}

	// Re-running reservation on the still-CREATED order: the shortfall is
	// already recorded as an open backorder, so the second pass must not
	// duplicate it or trigger another replenishment order.
	res3Again, err := workflow.ProcessOrderReservation(ctx, order3.ID, nil)
	if err != nil {
		t.Fatalf("re-reserve order3: %v", err)
	}
	if len(res3Again.Lines) != 0 {
		t.Fatalf("re-reserve order3: expected no line work, got %+v", res3Again.Lines)
	}
	openBackorders, err := models.GetBackordersForSalesOrder(ctx, order3.ID)
	if err != nil {
		t.Fatalf("GetBackordersForSalesOrder(order3): %v", err)
	}
	if len(openBackorders) != 1 {
		t.Fatalf("re-reserve order3: expected 1 backorder, got %d", len(openBackorders))
	}

	db := config.GetDB()
	var autoPo models.PurchaseOrder
	if err := db.WithContext(ctx).Preload("Lines").
		Where("po_number = ?", *res3.Lines[0].TriggeredPoNumber).
		First(&autoPo).Error; err != nil {
		t.Fatalf("fetch auto PO: %v", err)
	}
	if autoPo.Status != models.PurchaseOrderStatusDraft {
		t.Fatalf("auto PO: expected DRAFT, got %s", autoPo.Status)
	}
	if autoPo.SupplierId != supplier.ID {
		t.Fatalf("auto PO: expected supplier %d, got %d", supplier.ID, autoPo.SupplierId)
	}
	if autoPo.Lines[0].Quantity != 18 {
		t.Fatalf("auto PO: expected qty 18, got %d", autoPo.Lines[0].Quantity)
	}

	assertRecord(t, ctx, product.ID, wh1.ID, 10, 10)
	assertRecord(t, ctx, product.ID, wh2.ID, 3, 3)

	// Receiving before approval must fail.
	if _, err := workflow.ReceiveEntirePurchaseOrder(ctx, autoPo.ID); !utils.IsStateConflictError(err) {
		t.Fatalf("expected StateConflictError receiving a DRAFT PO, got %v", err)
	}

	if _, err := models.ApprovePurchaseOrder(ctx, autoPo.ID); err != nil {
		t.Fatalf("ApprovePurchaseOrder: %v", err)
	}
	receipt, err := workflow.ReceiveEntirePurchaseOrder(ctx, autoPo.ID)
	if err != nil {
		t.Fatalf("ReceiveEntirePurchaseOrder: %v", err)
	}

	// FIFO: order2's backorder (3, older) fills before order3's (5).
	if receipt.Lines[0].Fulfillment == nil {
		t.Fatal("expected fulfillment outcome on receipt")
	}
	if got := receipt.Lines[0].Fulfillment.DistributedQty; got != 8 {
		t.Fatalf("expected 8 units distributed to backorders, got %d", got)
	}

	backorders2, err := models.GetBackordersForSalesOrder(ctx, order2.ID)
	if err != nil {
		t.Fatalf("GetBackordersForSalesOrder(order2): %v", err)
	}
	if backorders2[0].Status != models.BackorderStatusFulfilled {
		t.Fatalf("order2 backorder: expected FULFILLED, got %s", backorders2[0].Status)
	}
	backorders3, err := models.GetBackordersForSalesOrder(ctx, order3.ID)
	if err != nil {
		t.Fatalf("GetBackordersForSalesOrder(order3): %v", err)
	}
	if backorders3[0].Status != models.BackorderStatusFulfilled {
		t.Fatalf("order3 backorder: expected FULFILLED, got %s", backorders3[0].Status)
	}

	order3Reloaded, err := models.GetSalesOrder(ctx, order3.ID)
	if err != nil {
		t.Fatalf("GetSalesOrder(order3): %v", err)
	}
	if order3Reloaded.Status != models.SalesOrderStatusReserved {
		t.Fatalf("order3 after fulfillment: expected RESERVED, got %s", order3Reloaded.Status)
	}
	if got := order3Reloaded.Lines[0].ReservedQuantity; got != 5 {
		t.Fatalf("order3 line: reserved must equal ordered after fulfillment, got %d", got)
	}

	// Ledger after receipt: +18 on hand, +8 reserved in the preferred warehouse.
	assertRecord(t, ctx, product.ID, wh1.ID, 28, 18)

	// Dispatch order1 end to end.
	shipment, err := workflow.CreateShipment(ctx, &workflow.NewShipment{SalesOrderId: order1.ID})
	if err != nil {
		t.Fatalf("CreateShipment: %v", err)
	}
	if shipment.Status != models.ShipmentStatusPlanned {
		t.Fatalf("shipment: expected PLANNED, got %s", shipment.Status)
	}
	if shipment.Lines[0].Quantity != 6 {
		t.Fatalf("shipment: expected qty 6, got %d", shipment.Lines[0].Quantity)
	}

	shipped, err := workflow.ShipShipment(ctx, shipment.ID, &workflow.DispatchInput{
		Carrier:        "DHL",
		TrackingNumber: "TRK-1",
	})
	if err != nil {
		t.Fatalf("ShipShipment: %v", err)
	}
	if shipped.Status != models.ShipmentStatusShipped {
		t.Fatalf("expected SHIPPED, got %s", shipped.Status)
	}
	assertRecord(t, ctx, product.ID, wh1.ID, 22, 12)

	order1Reloaded, err := models.GetSalesOrder(ctx, order1.ID)
	if err != nil {
		t.Fatalf("GetSalesOrder(order1): %v", err)
	}
	if order1Reloaded.Status != models.SalesOrderStatusShipped {
		t.Fatalf("order1: expected SHIPPED, got %s", order1Reloaded.Status)
	}

	// Double dispatch must conflict.
	if _, err := workflow.ShipShipment(ctx, shipment.ID, nil); !utils.IsStateConflictError(err) {
		t.Fatalf("expected StateConflictError on double dispatch, got %v", err)
	}

	delivered, err := workflow.MarkShipmentDelivered(ctx, shipment.ID)
	if err != nil {
		t.Fatalf("MarkShipmentDelivered: %v", err)
	}
	if delivered.Status != models.ShipmentStatusDelivered {
		t.Fatalf("expected DELIVERED, got %s", delivered.Status)
	}
	order1Reloaded, err = models.GetSalesOrder(ctx, order1.ID)
	if err != nil {
		t.Fatalf("GetSalesOrder(order1): %v", err)
	}
	if order1Reloaded.Status != models.SalesOrderStatusDelivered {
		t.Fatalf("order1: expected DELIVERED, got %s", order1Reloaded.Status)
	}

	// A planned shipment can be cancelled and re-planned.
	planned, err := workflow.CreateShipment(ctx, &workflow.NewShipment{SalesOrderId: order3.ID})
	if err != nil {
		t.Fatalf("CreateShipment(order3): %v", err)
	}
	cancelled, err := workflow.CancelShipment(ctx, planned.ID)
	if err != nil {
		t.Fatalf("CancelShipment: %v", err)
	}
	if cancelled.Status != models.ShipmentStatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", cancelled.Status)
	}
	if _, err := workflow.CreateShipment(ctx, &workflow.NewShipment{SalesOrderId: order3.ID}); err != nil {
		t.Fatalf("re-plan after cancel: %v", err)
	}

	// Movement trail: one adjustment per opening stock, one inbound receipt,
	// one outbound dispatch.
	movements, err := models.GetInventoryMovements(ctx, nil)
	if err != nil {
		t.Fatalf("GetInventoryMovements: %v", err)
	}
	counts := map[models.MovementType]int{}
	for _, m := range movements {
		counts[m.MovementType]++
		if m.CorrelationId != "it-chain-1" {
			t.Fatalf("movement %d missing correlation id: got %q", m.ID, m.CorrelationId)
		}
	}
	if counts[models.MovementTypeAdjustment] != 2 {
		t.Fatalf("expected 2 adjustment movements, got %d", counts[models.MovementTypeAdjustment])
	}
	if counts[models.MovementTypeInbound] != 1 {
		t.Fatalf("expected 1 inbound movement, got %d", counts[models.MovementTypeInbound])
	}
	if counts[models.MovementTypeOutbound] != 1 {
		t.Fatalf("expected 1 outbound movement, got %d", counts[models.MovementTypeOutbound])
	}
}

func mustAdjust(t *testing.T, ctx context.Context, productId, warehouseId, qty int) {
	t.Helper()
	if _, err := workflow.AdjustInventory(ctx, &workflow.NewAdjustment{
		ProductId:   productId,
		WarehouseId: warehouseId,
		Delta:       qty,
		Note:        "opening stock",
	}); err != nil {
		t.Fatalf("AdjustInventory(p=%d w=%d %+d): %v", productId, warehouseId, qty, err)
	}
}

func assertRecord(t *testing.T, ctx context.Context, productId, warehouseId, wantOnHand, wantReserved int) {
	t.Helper()
	db := config.GetDB()
	var record models.InventoryRecord
	if err := db.WithContext(ctx).
		Where("product_id = ? AND warehouse_id = ?", productId, warehouseId).
		First(&record).Error; err != nil {
		t.Fatalf("fetch record p=%d w=%d: %v", productId, warehouseId, err)
	}
	if record.QtyOnHand != wantOnHand || record.QtyReserved != wantReserved {
		t.Fatalf("record p=%d w=%d: expected %d/%d, got %d/%d",
			productId, warehouseId, wantOnHand, wantReserved, record.QtyOnHand, record.QtyReserved)
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("logistics-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("logistics-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=logistics_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
