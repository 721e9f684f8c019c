package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadhifr/eventra/internal/gateway"
)

const templateKey = "templates/shared/template.png"

func setupFlowTest(t *testing.T) (*TestDB, *TestServer) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	testDB, err := SetupTestDatabase(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { testDB.Teardown(context.Background()) })

	server, err := NewTestServer(testDB.DB, t.TempDir())
	require.NoError(t, err)
	t.Cleanup(server.Close)

	// Certificate template used by every seeded event
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 800, 600))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, server.Store.Save(ctx, templateKey, "image/png", &buf, int64(buf.Len())))

	return testDB, server
}

func TestFreeEventFlow(t *testing.T) {
	testDB, server := setupFlowTest(t)
	ctx := context.Background()

	event, err := SeedEvent(ctx, testDB.DB, "GOPH", decimal.Zero, true, templateKey)
	require.NoError(t, err)

	// Register: free events get an attendance token by email immediately
	var regResult struct {
		Participant struct {
			ID               string `json:"id"`
			AttendanceStatus string `json:"attendance_status"`
		} `json:"participant"`
		PaymentURL string `json:"payment_url"`
	}
	status, _ := server.PostJSON(t, "/events/"+event.ID+"/register", map[string]string{
		"name":  "Dina Lestari",
		"email": "dina@example.com",
		"phone": "08123456789",
	}, nil, &regResult)
	require.Equal(t, http.StatusCreated, status)
	assert.Empty(t, regResult.PaymentURL)

	token := server.Mailer.LastToken()
	require.Regexp(t, regexp.MustCompile(`^\d{10}$`), token)

	// Duplicate registration is rejected
	status, _ = server.PostJSON(t, "/events/"+event.ID+"/register", map[string]string{
		"name":  "Dina Lestari",
		"email": "dina@example.com",
	}, nil, nil)
	assert.Equal(t, http.StatusConflict, status)

	// Verify attendance with the emailed token; the certificate is rendered
	// inline as part of the check-in
	var verified struct {
		Success              bool `json:"success"`
		CertificateGenerated bool `json:"certificate_generated"`
		Participant          struct {
			ID                 string `json:"id"`
			AttendanceStatus   string `json:"attendance_status"`
			VerificationMethod string `json:"verification_method"`
		} `json:"participant"`
	}
	status, _ = server.PostJSON(t, "/attendance/verify", map[string]string{
		"token":    token,
		"event_id": event.ID,
	}, nil, &verified)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, verified.Success)
	assert.True(t, verified.CertificateGenerated)
	assert.Equal(t, regResult.Participant.ID, verified.Participant.ID)
	assert.Equal(t, "token", verified.Participant.VerificationMethod)

	// The token is single use
	status, _ = server.PostJSON(t, "/attendance/verify", map[string]string{
		"token":    token,
		"event_id": event.ID,
	}, nil, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	// The admin batch sees the inline-generated certificate and skips it
	_, err = SeedAdmin(ctx, testDB.DB, "admin@example.com", "AdminPassword123!")
	require.NoError(t, err)
	bearer := server.Login(t, "admin@example.com", "AdminPassword123!")

	var batch struct {
		Success           bool     `json:"success"`
		Message           string   `json:"message"`
		Generated         int      `json:"generated"`
		Skipped           int      `json:"skipped"`
		TotalParticipants int      `json:"total_participants"`
		Errors            []string `json:"errors"`
	}
	status, _ = server.PostJSON(t, "/events/"+event.ID+"/certificates/generate", nil,
		map[string]string{"Authorization": "Bearer " + bearer}, &batch)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, batch.Success)
	assert.Equal(t, 0, batch.Generated)
	assert.Equal(t, 1, batch.Skipped)
	assert.Equal(t, 1, batch.TotalParticipants)
	assert.Empty(t, batch.Errors)

	// Look the certificate up by number, then download the PDF
	number := fetchCertificateNumber(t, testDB, regResult.Participant.ID)
	require.Regexp(t, regexp.MustCompile(`^GOPH-\d{6}-[0-9A-F]{8}$`), number)

	var lookup struct {
		CertificateNumber string `json:"certificate_number"`
		ParticipantName   string `json:"participant_name"`
		Status            string `json:"status"`
	}
	status, _ = server.GetJSON(t, "/certificates/"+number, &lookup)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Dina Lestari", lookup.ParticipantName)
	assert.Equal(t, "generated", lookup.Status)

	resp, err := server.Server.Client().Get(server.Server.URL + "/certificates/" + number + "/download")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))

	pdf, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")), "download should be a PDF")
}

func TestPaidEventFlow(t *testing.T) {
	testDB, server := setupFlowTest(t)
	ctx := context.Background()

	event, err := SeedEvent(ctx, testDB.DB, "PAID", decimal.NewFromInt(150000), false, "")
	require.NoError(t, err)

	var regResult struct {
		Participant struct {
			ID               string `json:"id"`
			AttendanceStatus string `json:"attendance_status"`
		} `json:"participant"`
		PaymentURL string `json:"payment_url"`
	}
	status, _ := server.PostJSON(t, "/events/"+event.ID+"/register", map[string]string{
		"name":  "Budi Santoso",
		"email": "budi@example.com",
	}, nil, &regResult)
	require.Equal(t, http.StatusCreated, status)
	assert.NotEmpty(t, regResult.PaymentURL)

	// No token until the payment settles
	assert.Empty(t, server.Mailer.LastToken())

	invoiceNumber := lookupInvoiceNumber(t, testDB, regResult.Participant.ID)

	// Gateway callback with a bad signature is rejected
	body, err := json.Marshal(map[string]string{
		"invoiceNumber": invoiceNumber,
		"invoiceId":     "gw-" + invoiceNumber,
		"status":        "paid",
	})
	require.NoError(t, err)

	status, _ = postCallback(t, server, body, "deadbeef")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Empty(t, server.Mailer.LastToken())

	// A properly signed callback settles the payment and sends the token
	signature := gateway.Sign(body, []byte(CallbackSigningKey))
	status, _ = postCallback(t, server, body, signature)
	require.Equal(t, http.StatusOK, status)

	token := server.Mailer.LastToken()
	require.Regexp(t, regexp.MustCompile(`^\d{10}$`), token)

	// Replayed callbacks are acknowledged without side effects
	status, _ = postCallback(t, server, body, signature)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, server.Mailer.Sent, 1)

	// The token verifies attendance as usual
	status, _ = server.PostJSON(t, "/attendance/verify", map[string]string{
		"token":    token,
		"event_id": event.ID,
	}, nil, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestExpiredTokenRejected(t *testing.T) {
	testDB, server := setupFlowTest(t)
	ctx := context.Background()

	event, err := SeedEvent(ctx, testDB.DB, "EXPR", decimal.Zero, false, "")
	require.NoError(t, err)

	status, _ := server.PostJSON(t, "/events/"+event.ID+"/register", map[string]string{
		"name":  "Citra Dewi",
		"email": "citra@example.com",
	}, nil, nil)
	require.Equal(t, http.StatusCreated, status)

	token := server.Mailer.LastToken()
	require.Regexp(t, regexp.MustCompile(`^\d{10}$`), token)

	// Age the token past its expiry without redeeming it
	tag, err := testDB.Pool.Exec(ctx,
		`UPDATE registration_tokens SET expires_at = NOW() - INTERVAL '1 hour' WHERE token = $1 AND event_id = $2`,
		token, event.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, tag.RowsAffected())

	status, raw := server.PostJSON(t, "/attendance/verify", map[string]string{
		"token":    token,
		"event_id": event.ID,
	}, nil, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, string(raw), "invalid_token")
}

func postCallback(t *testing.T, server *TestServer, body []byte, signature string) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, server.Server.URL+"/payments/callback", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", signature)

	resp, err := server.Server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func fetchCertificateNumber(t *testing.T, testDB *TestDB, participantID string) string {
	t.Helper()
	var number string
	err := testDB.Pool.QueryRow(context.Background(),
		`SELECT certificate_number FROM certificates WHERE participant_id = $1`, participantID).Scan(&number)
	require.NoError(t, err)
	return number
}

func lookupInvoiceNumber(t *testing.T, testDB *TestDB, participantID string) string {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		var invoiceNumber string
		err := testDB.Pool.QueryRow(context.Background(),
			`SELECT invoice_number FROM payments WHERE participant_id = $1`, participantID).Scan(&invoiceNumber)
		if err == nil {
			return invoiceNumber
		}
		if time.Now().After(deadline) {
			t.Fatalf("payment row not found for participant %s: %v", participantID, err)
		}
		time.Sleep(50 * time.Millisecond)
	}
}
