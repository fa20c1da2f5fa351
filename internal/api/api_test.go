package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/nadimkh/mouneh/internal/auth"
	"github.com/nadimkh/mouneh/internal/dailylog"
	"github.com/nadimkh/mouneh/internal/db"
	"github.com/nadimkh/mouneh/internal/inventory"
	"github.com/nadimkh/mouneh/internal/ledger"
	"github.com/nadimkh/mouneh/internal/model"
	"github.com/nadimkh/mouneh/internal/notify"
	"github.com/nadimkh/mouneh/internal/persist"
	"github.com/nadimkh/mouneh/internal/store"
	"github.com/nadimkh/mouneh/internal/transfer"
)

const testJWTSecret = "test-secret"

type testEnv struct {
	server *httptest.Server
	cfg    Config
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	database := db.NewTestDB(t)

	ctx := context.Background()
	for _, loc := range []model.Location{
		{ID: model.LocationWarehouse, Name: "Central Warehouse", Icon: "warehouse", Type: model.LocationTypeCentral},
		{ID: model.LocationMammal, Name: "Mammal", Icon: "factory", Type: model.LocationTypeCentral},
		{ID: model.BranchID("achrafieh"), Name: "Achrafieh", Icon: "storefront", Type: model.LocationTypeBranch},
	} {
		if err := store.UpsertLocation(ctx, database, loc); err != nil {
			t.Fatalf("seeding location: %v", err)
		}
	}

	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	users := []struct{ username, name, role, branch string }{
		{"admin", "Admin", model.RoleAdmin, ""},
		{"wh", "Warehouse Manager", model.RoleWarehouseManager, ""},
		{"branch", "Branch Manager", model.RoleBranchManager, "achrafieh"},
		{"mammal", "Mammal Worker", model.RoleMammalEmployee, ""},
	}
	for _, u := range users {
		if _, err := store.CreateUser(ctx, database, u.username, string(hash), u.name, u.role, u.branch); err != nil {
			t.Fatalf("seeding user %s: %v", u.username, err)
		}
	}

	inv := inventory.NewRepository()
	log := ledger.NewLog()
	queue := persist.NewQueue(database, nil)
	t.Cleanup(queue.Close)

	cfg := Config{
		DB:        database,
		Inventory: inv,
		Ledger:    log,
		Queue:     queue,
		Transfers: transfer.New(inv, log, queue),
		DailyLog:  dailylog.New(inv, log, queue),
		Notifier:  notify.NewEmitter(nil),
		JWTSecret: testJWTSecret,
	}

	server := httptest.NewServer(NewRouter(cfg))
	t.Cleanup(server.Close)

	return &testEnv{server: server, cfg: cfg}
}

func (e *testEnv) login(t *testing.T, username string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": "password"})
	resp, err := http.Post(e.server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login as %s failed: %d", username, resp.StatusCode)
	}

	var loginResp struct {
		Token string `json:"token"`
	}
	json.NewDecoder(resp.Body).Decode(&loginResp)
	if loginResp.Token == "" {
		t.Fatal("empty token from login")
	}
	return loginResp.Token
}

// seedItem puts an item straight into the cache and the store.
func (e *testEnv) seedItem(t *testing.T, location, name string, quantity float64) model.Item {
	t.Helper()
	item := e.cfg.Inventory.Insert(model.Item{
		LocationID: location,
		NameEn:     name,
		Category:   "Dry Goods",
		Unit:       "kg",
		Quantity:   quantity,
	})
	persist.EnqueueItemInsert(e.cfg.Queue, e.cfg.Inventory, item)
	e.cfg.Queue.Wait()

	items := e.cfg.Inventory.List(location)
	for _, it := range items {
		if it.NameEn == name {
			return it
		}
	}
	t.Fatalf("seeded item %s not found", name)
	return model.Item{}
}

func authRequest(method, url, token string, body any) (*http.Request, error) {
	var bodyReader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func doJSON(t *testing.T, req *http.Request, want int, out any) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request %s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		t.Fatalf("%s %s: expected %d, got %d", req.Method, req.URL.Path, want, resp.StatusCode)
	}
	if out != nil {
		json.NewDecoder(resp.Body).Decode(out)
	}
}

func TestLoginEndpoint(t *testing.T) {
	env := setupTestEnv(t)

	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	resp, _ := http.Post(env.server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestUnauthenticatedAccess(t *testing.T) {
	env := setupTestEnv(t)

	resp, _ := http.Get(env.server.URL + "/api/items")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for unauthenticated request, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestItemsAPIFlow(t *testing.T) {
	env := setupTestEnv(t)
	token := env.login(t, "wh")

	// Create an item at the warehouse.
	req, _ := authRequest("POST", env.server.URL+"/api/items", token, map[string]any{
		"location_id": model.LocationWarehouse,
		"name_en":     "Olive Oil",
		"unit":        "L",
		"quantity":    24.0,
	})
	var created model.Item
	doJSON(t, req, http.StatusCreated, &created)
	if created.Quantity != 24 {
		t.Errorf("expected quantity 24, got %g", created.Quantity)
	}

	// The item is visible immediately, before the durable write settles.
	req, _ = authRequest("GET", env.server.URL+"/api/items?location="+model.LocationWarehouse, token, nil)
	var items []model.Item
	doJSON(t, req, http.StatusOK, &items)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}

	// Once the queue settles, the store has it too.
	env.cfg.Queue.Wait()
	stored, err := store.ListItems(context.Background(), env.cfg.DB, model.LocationWarehouse)
	if err != nil {
		t.Fatalf("listing stored items: %v", err)
	}
	if len(stored) != 1 || stored[0].NameEn != "Olive Oil" {
		t.Fatalf("expected Olive Oil in store, got %+v", stored)
	}
}

func TestItemCreateOutsideManagedLocation(t *testing.T) {
	env := setupTestEnv(t)
	token := env.login(t, "branch")

	// A branch manager cannot create warehouse items.
	req, _ := authRequest("POST", env.server.URL+"/api/items", token, map[string]any{
		"location_id": model.LocationWarehouse,
		"name_en":     "Flour",
		"quantity":    5.0,
	})
	doJSON(t, req, http.StatusForbidden, nil)
}

func TestTransferAPIFlow(t *testing.T) {
	env := setupTestEnv(t)
	item := env.seedItem(t, model.LocationWarehouse, "Rice", 50)

	whToken := env.login(t, "wh")
	branchToken := env.login(t, "branch")

	// Warehouse manager sends 20 kg to the branch. Manager of the
	// source, so the transfer starts pending_target.
	req, _ := authRequest("POST", env.server.URL+"/api/transfers", whToken, map[string]any{
		"to_location": model.BranchID("achrafieh"),
		"lines":       []map[string]any{{"item_id": item.ID, "quantity": 20.0}},
	})
	var initResult transfer.InitiateResult
	doJSON(t, req, http.StatusCreated, &initResult)
	if initResult.Status != model.StatusPendingTarget {
		t.Fatalf("expected pending_target, got %s", initResult.Status)
	}

	// Let the durable writes settle so the placeholder ID is rebound.
	env.cfg.Queue.Wait()
	group := env.cfg.Ledger.Group(initResult.GroupID)
	if len(group) != 1 {
		t.Fatalf("expected 1 transaction in group, got %d", len(group))
	}
	txnID := group[0].ID

	// The branch sees the pending transfer as a notification.
	req, _ = authRequest("GET", env.server.URL+"/api/notifications", branchToken, nil)
	var alerts []notify.Alert
	doJSON(t, req, http.StatusOK, &alerts)
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}

	// Refreshing does not re-alert.
	req, _ = authRequest("GET", env.server.URL+"/api/notifications", branchToken, nil)
	doJSON(t, req, http.StatusOK, &alerts)
	if len(alerts) != 0 {
		t.Errorf("expected no repeat alerts, got %d", len(alerts))
	}

	// The warehouse manager cannot receive for the branch.
	req, _ = authRequest("POST", env.server.URL+"/api/transactions/"+itoa(txnID)+"/receive", whToken, nil)
	doJSON(t, req, http.StatusForbidden, nil)

	// The branch manager receives it.
	req, _ = authRequest("POST", env.server.URL+"/api/transactions/"+itoa(txnID)+"/receive", branchToken, nil)
	var result transfer.TransitionResult
	doJSON(t, req, http.StatusOK, &result)
	if result.Transaction.Status != model.StatusCompleted {
		t.Errorf("expected completed, got %s", result.Transaction.Status)
	}
	if !result.ItemCreated {
		t.Error("expected a new item at the branch")
	}

	// Receiving again conflicts.
	req, _ = authRequest("POST", env.server.URL+"/api/transactions/"+itoa(txnID)+"/receive", branchToken, nil)
	doJSON(t, req, http.StatusConflict, nil)
}

func TestTransferRejectRequiresReason(t *testing.T) {
	env := setupTestEnv(t)
	item := env.seedItem(t, model.LocationWarehouse, "Sugar", 10)

	whToken := env.login(t, "wh")

	req, _ := authRequest("POST", env.server.URL+"/api/transfers", whToken, map[string]any{
		"to_location": model.BranchID("achrafieh"),
		"lines":       []map[string]any{{"item_id": item.ID, "quantity": 5.0}},
	})
	var initResult transfer.InitiateResult
	doJSON(t, req, http.StatusCreated, &initResult)

	env.cfg.Queue.Wait()
	txnID := env.cfg.Ledger.Group(initResult.GroupID)[0].ID

	req, _ = authRequest("POST", env.server.URL+"/api/transactions/"+itoa(txnID)+"/reject", whToken, map[string]string{})
	doJSON(t, req, http.StatusBadRequest, nil)

	req, _ = authRequest("POST", env.server.URL+"/api/transactions/"+itoa(txnID)+"/reject", whToken, map[string]string{"reason": "wrong branch"})
	var result transfer.TransitionResult
	doJSON(t, req, http.StatusOK, &result)
	if result.Transaction.Status != model.StatusRejected {
		t.Errorf("expected rejected, got %s", result.Transaction.Status)
	}

	// The deducted stock came back.
	got, err := env.cfg.Inventory.Get(model.LocationWarehouse, item.ID)
	if err != nil {
		t.Fatalf("getting item: %v", err)
	}
	if got.Quantity != 10 {
		t.Errorf("expected quantity restored to 10, got %g", got.Quantity)
	}
}

func TestDailyLogEndpoint(t *testing.T) {
	env := setupTestEnv(t)
	item := env.seedItem(t, model.LocationWarehouse, "Lentils", 8)

	token := env.login(t, "wh")

	// Using more than is in stock fails.
	req, _ := authRequest("POST", env.server.URL+"/api/daily-log", token, map[string]any{
		"type":     model.TypeUsage,
		"item_id":  item.ID,
		"quantity": 20.0,
	})
	doJSON(t, req, http.StatusBadRequest, nil)

	// A valid usage completes immediately.
	req, _ = authRequest("POST", env.server.URL+"/api/daily-log", token, map[string]any{
		"type":     model.TypeUsage,
		"item_id":  item.ID,
		"quantity": 3.0,
	})
	var txn model.Transaction
	doJSON(t, req, http.StatusCreated, &txn)
	if txn.Status != model.StatusCompleted {
		t.Errorf("expected completed, got %s", txn.Status)
	}
	if txn.ToLocation != model.SentinelConsumed {
		t.Errorf("expected usage to flow to %q, got %q", model.SentinelConsumed, txn.ToLocation)
	}

	got, _ := env.cfg.Inventory.Get(model.LocationWarehouse, item.ID)
	if got.Quantity != 5 {
		t.Errorf("expected quantity 5, got %g", got.Quantity)
	}
}

func TestMammalEmployeeRecordsDailyLog(t *testing.T) {
	env := setupTestEnv(t)
	item := env.seedItem(t, model.LocationMammal, "Labneh", 12)

	token := env.login(t, "mammal")

	// Recording at the production unit needs no managerial authority,
	// the employee's home location is enough.
	req, _ := authRequest("POST", env.server.URL+"/api/daily-log", token, map[string]any{
		"type":     model.TypeUsage,
		"item_id":  item.ID,
		"quantity": 3.0,
	})
	var txn model.Transaction
	doJSON(t, req, http.StatusCreated, &txn)
	if txn.Status != model.StatusCompleted {
		t.Errorf("expected completed, got %s", txn.Status)
	}

	got, _ := env.cfg.Inventory.Get(model.LocationMammal, item.ID)
	if got.Quantity != 9 {
		t.Errorf("expected quantity 9, got %g", got.Quantity)
	}

	// Other locations stay off limits.
	req, _ = authRequest("POST", env.server.URL+"/api/daily-log?location="+model.LocationWarehouse, token, map[string]any{
		"type":     model.TypeUsage,
		"item_id":  item.ID,
		"quantity": 1.0,
	})
	doJSON(t, req, http.StatusForbidden, nil)
}

func TestRoleBasedAccess(t *testing.T) {
	env := setupTestEnv(t)
	token := env.login(t, "mammal")

	// Mammal employees cannot create items.
	req, _ := authRequest("POST", env.server.URL+"/api/items", token, map[string]any{
		"location_id": model.LocationMammal,
		"name_en":     "Labneh",
	})
	doJSON(t, req, http.StatusForbidden, nil)

	// Or manage users.
	req, _ = authRequest("GET", env.server.URL+"/api/users", token, nil)
	doJSON(t, req, http.StatusForbidden, nil)
}

func TestUserProvisioningCreatesBranch(t *testing.T) {
	env := setupTestEnv(t)
	token := env.login(t, "admin")

	req, _ := authRequest("POST", env.server.URL+"/api/users", token, map[string]string{
		"username":    "hamra",
		"password":    "longenough",
		"name":        "Hamra Manager",
		"role":        model.RoleBranchManager,
		"branch_code": "hamra",
		"branch_name": "Hamra",
	})
	doJSON(t, req, http.StatusCreated, nil)

	loc, err := store.GetLocation(context.Background(), env.cfg.DB, model.BranchID("hamra"))
	if err != nil {
		t.Fatalf("getting branch location: %v", err)
	}
	if loc == nil || loc.Name != "Hamra" {
		t.Fatalf("expected provisioned branch, got %+v", loc)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	env := setupTestEnv(t)
	token := env.login(t, "admin")

	req, _ := authRequest("POST", env.server.URL+"/api/auth/logout", token, nil)
	doJSON(t, req, http.StatusOK, nil)

	req, _ = authRequest("GET", env.server.URL+"/api/users", token, nil)
	doJSON(t, req, http.StatusUnauthorized, nil)
}

func TestTokenForUnknownRole(t *testing.T) {
	env := setupTestEnv(t)

	// A forged token with an unknown role gets nowhere past role checks.
	token, _ := auth.GenerateToken(testJWTSecret, &model.User{ID: 99, Username: "x", Role: "intern"})
	req, _ := authRequest("GET", env.server.URL+"/api/users", token, nil)
	doJSON(t, req, http.StatusForbidden, nil)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
