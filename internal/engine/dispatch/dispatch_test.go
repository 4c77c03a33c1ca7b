package dispatch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinel/internal/platform/models"
)

func TestWhatsAppSender_Deliver(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"messages":[{"id":"wamid.abc123"}]}`)
	}))
	defer srv.Close()

	sender := NewWhatsAppSender(models.WhatsAppSettings{
		APIEndpoint: srv.URL + "/",
		APIKey:      "wa-token",
	})

	result, err := sender.Deliver(context.Background(), Message{
		CaseID:    "case_1",
		Recipient: "+15550001",
		Body:      "urgent notice",
	})
	require.NoError(t, err)

	assert.Equal(t, "wamid.abc123", result.ProviderRef)
	assert.Equal(t, "Bearer wa-token", gotAuth)
	assert.Equal(t, "/messages", gotPath)
	assert.Equal(t, "whatsapp", gotBody["messaging_product"])
	assert.Equal(t, "+15550001", gotBody["to"])
	assert.Equal(t, "text", gotBody["type"])
	assert.Equal(t, map[string]any{"body": "urgent notice"}, gotBody["text"])
}

func TestWhatsAppSender_DeliverUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	sender := NewWhatsAppSender(models.WhatsAppSettings{APIEndpoint: srv.URL, APIKey: "k"})
	_, err := sender.Deliver(context.Background(), Message{Recipient: "+1", Body: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestSMSSender_UnknownProvider(t *testing.T) {
	_, err := NewSMSSender(models.SMSSettings{Provider: "carrier_pigeon"})
	require.Error(t, err)
}

func TestSMSSender_Twilio(t *testing.T) {
	var gotUser, gotPass string
	var gotForm map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, _ = r.BasicAuth()
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"To":   r.PostFormValue("To"),
			"From": r.PostFormValue("From"),
			"Body": r.PostFormValue("Body"),
		}
		io.WriteString(w, `{"sid":"SM123"}`)
	}))
	defer srv.Close()

	sender, err := NewSMSSender(models.SMSSettings{
		Provider:    models.SMSProviderTwilio,
		APIEndpoint: srv.URL,
		APIKey:      "AC001:secret",
		SenderID:    "+15550100",
	})
	require.NoError(t, err)

	result, err := sender.Deliver(context.Background(), Message{Recipient: "+15550001", Body: "alert"})
	require.NoError(t, err)

	assert.Equal(t, "SM123", result.ProviderRef)
	assert.Equal(t, "AC001", gotUser)
	assert.Equal(t, "secret", gotPass)
	assert.Equal(t, map[string]string{"To": "+15550001", "From": "+15550100", "Body": "alert"}, gotForm)
}

func TestSMSSender_AfricaTalking(t *testing.T) {
	var gotAPIKey string
	var gotForm map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAPIKey = r.Header.Get("apiKey")
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"username": r.PostFormValue("username"),
			"to":       r.PostFormValue("to"),
			"from":     r.PostFormValue("from"),
			"message":  r.PostFormValue("message"),
		}
		io.WriteString(w, `{"SMSMessageData":{"Recipients":[{"messageId":"ATXid_1"}]}}`)
	}))
	defer srv.Close()

	sender, err := NewSMSSender(models.SMSSettings{
		Provider:    models.SMSProviderAfricaTalking,
		APIEndpoint: srv.URL,
		APIKey:      "at-key",
		SenderID:    "SENTINEL",
		Username:    "acct",
	})
	require.NoError(t, err)

	result, err := sender.Deliver(context.Background(), Message{Recipient: "+251911000000", Body: "alert"})
	require.NoError(t, err)

	assert.Equal(t, "ATXid_1", result.ProviderRef)
	assert.Equal(t, "at-key", gotAPIKey)
	assert.Equal(t, map[string]string{"username": "acct", "to": "+251911000000", "from": "SENTINEL", "message": "alert"}, gotForm)
}

func TestSMSSender_EthioTelecom(t *testing.T) {
	var gotAuth string
	var gotBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		io.WriteString(w, `{"message_id":"et-42"}`)
	}))
	defer srv.Close()

	sender, err := NewSMSSender(models.SMSSettings{
		Provider:    models.SMSProviderEthioTelecom,
		APIEndpoint: srv.URL,
		APIKey:      "et-key",
		SenderID:    "SENTINEL",
	})
	require.NoError(t, err)

	result, err := sender.Deliver(context.Background(), Message{Recipient: "+251911000001", Body: "alert"})
	require.NoError(t, err)

	assert.Equal(t, "et-42", result.ProviderRef)
	assert.Equal(t, "Bearer et-key", gotAuth)
	assert.Equal(t, map[string]string{"to": "+251911000001", "sender_id": "SENTINEL", "message": "alert"}, gotBody)
}

func TestVoiceCallSender_Deliver(t *testing.T) {
	var gotPath string
	var gotBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		io.WriteString(w, `{"call_id":"call-7"}`)
	}))
	defer srv.Close()

	sender := NewVoiceCallSender(models.FreePBXSettings{
		ServerURL: srv.URL,
		APIKey:    "pbx-key",
		Extension: "100",
		CallerID:  "Sentinel <100>",
	})

	result, err := sender.Deliver(context.Background(), Message{Recipient: "+15550001", Body: "say this"})
	require.NoError(t, err)

	assert.Equal(t, "call-7", result.ProviderRef)
	assert.Equal(t, "/api/originate", gotPath)
	assert.Equal(t, "100", gotBody["extension"])
	assert.Equal(t, "+15550001", gotBody["destination"])
	assert.Equal(t, "say this", gotBody["message"])
}

func TestDispatcher_RoutesByChannel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"messages":[{"id":"m1"}]}`)
	}))
	defer srv.Close()

	d := NewDispatcher(NewWhatsAppSender(models.WhatsAppSettings{APIEndpoint: srv.URL, APIKey: "k"}))

	assert.True(t, d.Configured(models.ChannelWhatsApp))
	assert.False(t, d.Configured(models.ChannelSMS))

	result, err := d.Deliver(context.Background(), models.ChannelWhatsApp, Message{Recipient: "+1", Body: "b"})
	require.NoError(t, err)
	assert.Equal(t, "m1", result.ProviderRef)

	_, err = d.Deliver(context.Background(), models.ChannelVoiceCall, Message{Recipient: "+1", Body: "b"})
	assert.ErrorIs(t, err, ErrChannelNotConfigured)
}
