package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"stockfolio/internal/database"
	"stockfolio/internal/marketdata"
	"stockfolio/internal/models"
	"stockfolio/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

type brokenStore struct{ database.Store }

func (brokenStore) ListHoldings(context.Context) ([]models.Holding, error) {
	return nil, errors.New("connection reset by peer")
}

// rejectingStore fails any batch containing the given symbol.
type rejectingStore struct {
	*database.MemoryStore
	reject string
}

func (s rejectingStore) CreateHoldings(ctx context.Context, in []models.NewHolding) ([]models.Holding, error) {
	for _, h := range in {
		if h.StockSymbol == s.reject {
			return nil, errors.New("constraint violation")
		}
	}
	return s.MemoryStore.CreateHoldings(ctx, in)
}

func postCSV(t *testing.T, r http.Handler, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "holdings.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/portfolio/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func newTestRouter(t *testing.T, store database.Store) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	sim := marketdata.NewSimulator(marketdata.SimulatorConfig{Seed: 11, Fallback: true}, log)
	h := NewHandler(store,
		service.NewPortfolioService(store, log),
		service.NewQuoteService(store, sim, nil, 5, log),
		log)
	return NewRouter(h, RouterOptions{}, log)
}

func seededStore(t *testing.T) *database.MemoryStore {
	t.Helper()
	store := database.NewMemoryStore()
	_, err := database.SeedDemo(context.Background(), store)
	require.NoError(t, err)
	return store
}

func do(t *testing.T, r http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t, database.NewMemoryStore())
	w, _ := do(t, r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestGetPortfolio(t *testing.T) {
	r := newTestRouter(t, seededStore(t))
	w, env := do(t, r, http.MethodGet, "/api/portfolio", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, env.Success)

	var view struct {
		Holdings []map[string]any `json:"holdings"`
		Summary  map[string]any   `json:"summary"`
		Sectors  []map[string]any `json:"sectors"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Len(t, view.Holdings, 5)
	assert.Len(t, view.Sectors, 4)
	assert.Equal(t, "Reliance Industries Ltd", view.Holdings[0]["particulars"])
	assert.Equal(t, "24500", view.Holdings[0]["investment"])
	assert.Equal(t, "25207.5", view.Holdings[0]["present_value"])
}

func TestGetPortfolio_StoreFailureIsGeneric(t *testing.T) {
	r := newTestRouter(t, brokenStore{database.NewMemoryStore()})
	w, env := do(t, r, http.MethodGet, "/api/portfolio", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "Failed to fetch portfolio data", env.Error)
	assert.NotContains(t, w.Body.String(), "connection reset")
}

func TestCreateHolding(t *testing.T) {
	store := database.NewMemoryStore()
	r := newTestRouter(t, store)

	w, env := do(t, r, http.MethodPost, "/api/portfolio",
		`{"stock_symbol":" wipro ","stock_name":"Wipro Ltd","purchase_price":"412.50","quantity":3,"exchange_code":"bse"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.True(t, env.Success)

	var h models.Holding
	require.NoError(t, json.Unmarshal(env.Data, &h))
	assert.Equal(t, "WIPRO", h.StockSymbol)
	assert.Equal(t, "412.5", h.PurchasePrice.String())
	assert.Equal(t, int64(3), h.Quantity)
	assert.Equal(t, "Other", h.Sector)
	assert.Equal(t, "BSE", h.ExchangeCode)

	all, err := store.ListHoldings(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreateHolding_PricePrecision(t *testing.T) {
	r := newTestRouter(t, database.NewMemoryStore())
	w, env := do(t, r, http.MethodPost, "/api/portfolio",
		`{"stock_symbol":"TCS","stock_name":"x","purchase_price":"10.12340","quantity":1}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var h models.Holding
	require.NoError(t, json.Unmarshal(env.Data, &h))
	assert.Equal(t, "10.1234", h.PurchasePrice.String())
}

func TestCreateHolding_Validation(t *testing.T) {
	r := newTestRouter(t, database.NewMemoryStore())

	cases := map[string]struct {
		body string
		msg  string
	}{
		"missing name":      {`{"stock_symbol":"TCS","purchase_price":1,"quantity":1}`, "Missing required fields"},
		"blank symbol":      {`{"stock_symbol":"  ","stock_name":"x","purchase_price":1,"quantity":1}`, "Missing required fields"},
		"zero price":        {`{"stock_symbol":"TCS","stock_name":"x","purchase_price":0,"quantity":1}`, "purchase_price must be a positive number"},
		"text price":        {`{"stock_symbol":"TCS","stock_name":"x","purchase_price":"abc","quantity":1}`, "purchase_price must be a positive number"},
		"five decimals":     {`{"stock_symbol":"TCS","stock_name":"x","purchase_price":"10.12345","quantity":1}`, "purchase_price allows at most 4 decimal places"},
		"fraction quantity": {`{"stock_symbol":"TCS","stock_name":"x","purchase_price":1,"quantity":"1.5"}`, "quantity must be a positive whole number"},
		"negative quantity": {`{"stock_symbol":"TCS","stock_name":"x","purchase_price":1,"quantity":-2}`, "quantity must be a positive whole number"},
		"malformed json":    {`{"stock_symbol":`, "Invalid request body"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			w, env := do(t, r, http.MethodPost, "/api/portfolio", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.False(t, env.Success)
			assert.Equal(t, tc.msg, env.Error)
		})
	}
}

func TestHoldingByID(t *testing.T) {
	store := seededStore(t)
	r := newTestRouter(t, store)

	w, env := do(t, r, http.MethodGet, "/api/portfolio/2", "")
	require.Equal(t, http.StatusOK, w.Code)
	var h models.Holding
	require.NoError(t, json.Unmarshal(env.Data, &h))
	assert.Equal(t, "TCS", h.StockSymbol)

	w, env = do(t, r, http.MethodGet, "/api/portfolio/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid holding ID", env.Error)

	w, env = do(t, r, http.MethodGet, "/api/portfolio/999", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Holding not found", env.Error)
}

func TestUpdateHolding(t *testing.T) {
	store := seededStore(t)
	r := newTestRouter(t, store)

	w, env := do(t, r, http.MethodPut, "/api/portfolio/2", `{"quantity":"7","stock_symbol":"tcs.ns"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var h models.Holding
	require.NoError(t, json.Unmarshal(env.Data, &h))
	assert.Equal(t, int64(7), h.Quantity)
	assert.Equal(t, "TCS.NS", h.StockSymbol)
	assert.Equal(t, "Tata Consultancy Services", h.StockName)
	assert.Equal(t, "3200", h.PurchasePrice.String())

	w, env = do(t, r, http.MethodPut, "/api/portfolio/2", `{"purchase_price":-1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "purchase_price must be a positive number", env.Error)

	w, _ = do(t, r, http.MethodPut, "/api/portfolio/999", `{"quantity":1}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteHolding(t *testing.T) {
	store := seededStore(t)
	r := newTestRouter(t, store)

	w, env := do(t, r, http.MethodDelete, "/api/portfolio/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "Holding deleted successfully", env.Message)

	w, _ = do(t, r, http.MethodDelete, "/api/portfolio/1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateStocks(t *testing.T) {
	store := database.NewMemoryStore()
	r := newTestRouter(t, store)

	w, env := do(t, r, http.MethodPost, "/api/stocks/update", `{"symbols":["tcs","INFY","TCS"]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res service.RefreshResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, 2, res.UpdatedCount)
	assert.Len(t, res.Stocks, 2)

	quotes, err := store.GetQuotes(context.Background(), []string{"TCS", "INFY"})
	require.NoError(t, err)
	assert.Len(t, quotes, 2)

	for _, body := range []string{`{}`, `{"symbols":"TCS"}`, `not json`} {
		w, env = do(t, r, http.MethodPost, "/api/stocks/update", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, "Symbols array is required", env.Error)
	}

	w, env = do(t, r, http.MethodPost, "/api/stocks/update", `{"symbols":[]}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, 0, res.UpdatedCount)
}

func TestAutoUpdateStocks(t *testing.T) {
	r := newTestRouter(t, database.NewMemoryStore())
	w, env := do(t, r, http.MethodGet, "/api/stocks/update", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "No stocks to update", env.Message)

	r = newTestRouter(t, seededStore(t))
	w, env = do(t, r, http.MethodGet, "/api/stocks/update", "")
	require.Equal(t, http.StatusOK, w.Code)
	var res service.RefreshResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, 5, res.UpdatedCount)
}

func TestImportHoldings(t *testing.T) {
	store := database.NewMemoryStore()
	r := newTestRouter(t, store)

	csvBody := "Stock Name,Purchase Price,Qty,Sector,NSE/BSE\n" +
		"Infosys,1450,8,Technology,nse\n" +
		"Bad Row,0,3,Technology,NSE\n" +
		"State Bank,600.5,10,,\n"

	w, env := postCSV(t, r, csvBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res struct {
		Imported int `json:"imported"`
		Skipped  int `json:"skipped"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 1, res.Skipped)

	all, err := store.ListHoldings(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "INFOSYS", all[0].StockSymbol)
	assert.Equal(t, "NSE", all[0].ExchangeCode)
	assert.Equal(t, "STATEBANK", all[1].StockSymbol)
	assert.Equal(t, "Other", all[1].Sector)
}

func TestImportHoldings_StoreFailureWritesNothing(t *testing.T) {
	mem := database.NewMemoryStore()
	r := newTestRouter(t, rejectingStore{MemoryStore: mem, reject: "WIPRO"})

	csvBody := "symbol,name,price,quantity\n" +
		"INFY,Infosys,1450,8\n" +
		"WIPRO,Wipro,412.5,3\n" +
		"TCS,Tata Consultancy,3200,5\n"
	w, env := postCSV(t, r, csvBody)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to import portfolio holdings", env.Error)

	all, err := mem.ListHoldings(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)

	// a retry after the fault clears imports each row exactly once
	r = newTestRouter(t, mem)
	w, _ = postCSV(t, r, csvBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	all, err = mem.ListHoldings(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestImportHoldings_NoFile(t *testing.T) {
	r := newTestRouter(t, database.NewMemoryStore())
	w, env := do(t, r, http.MethodPost, "/api/portfolio/import", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No file uploaded", env.Error)
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	r := gin.New()
	r.Use(RequestID(), Recovery(log))
	r.GET("/boom", func(*gin.Context) { panic("kaboom") })

	w, env := do(t, r, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", env.Error)
}

func TestUnknownRoute(t *testing.T) {
	r := newTestRouter(t, database.NewMemoryStore())
	w, env := do(t, r, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, env.Success)
}
