package core_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/webclip/pkg/core"
)

func TestMessageValidate(t *testing.T) {
	capture := &core.CapturePayload{
		Mode:        core.ModeLink,
		Destination: core.DestinationRef{Type: core.DestinationJournal},
	}

	tests := []struct {
		name string
		msg  core.Message
		want error
	}{
		{"Ping", core.Message{Type: core.TypePing, Source: core.TagBridge}, nil},
		{"Capture", core.Message{Type: core.TypeCapture, Payload: capture, Source: core.TagBridge}, nil},
		{"Capture Without Payload", core.Message{Type: core.TypeCapture, Source: core.TagBridge}, core.ErrInvalidMessage},
		{"Bad Mode", core.Message{Type: core.TypeCapture, Payload: &core.CapturePayload{Mode: "video", Destination: capture.Destination}, Source: core.TagBridge}, core.ErrInvalidMessage},
		{"Response Without ID", core.Message{Type: core.TypeResponse, Response: &core.Result{}, Source: core.TagHost}, core.ErrInvalidMessage},
		{"Status Without Body", core.Message{Type: core.TypeStatusUpdate, Source: core.TagHost}, core.ErrInvalidMessage},
		{"Unknown Type", core.Message{Type: "DELETE_ALL", Source: core.TagBridge}, core.ErrUnknownMessageType},
		{"Unknown Source", core.Message{Type: core.TypePing, Source: "page-script"}, core.ErrInvalidMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestMessageWireShape(t *testing.T) {
	res, err := core.OK(map[string]bool{"connected": true})
	require.NoError(t, err)

	req := core.Message{Type: core.TypePing, CorrelationID: "abc", Source: core.TagBridge}
	data, err := json.Marshal(req.Reply(res, core.TagHost))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"RESPONSE","correlationId":"abc","response":{"connected":true},"source":"host-plugin"}`, string(data))

	decoded, err := core.DecodeMessage(data)
	require.NoError(t, err)
	require.NoError(t, decoded.Validate())

	var body map[string]bool
	require.NoError(t, decoded.Response.Decode(&body))
	assert.True(t, body["connected"])

	_, err = core.DecodeMessage([]byte("{not json"))
	assert.ErrorIs(t, err, core.ErrInvalidMessage)
}

func TestResultErrors(t *testing.T) {
	t.Run("Unknown Type Uses Wire Text", func(t *testing.T) {
		res := core.ResultFromError(fmt.Errorf("route: %w", core.ErrUnknownMessageType))
		data, err := json.Marshal(res)
		require.NoError(t, err)
		assert.JSONEq(t, `{"error":"Unknown message type","code":"unknown_message_type"}`, string(data))
	})

	t.Run("Round Trip Keeps Sentinel", func(t *testing.T) {
		res := core.ResultFromError(core.ErrDestinationNotFound)
		data, err := json.Marshal(res)
		require.NoError(t, err)

		var back core.Result
		require.NoError(t, json.Unmarshal(data, &back))
		assert.True(t, back.Failed())
		assert.ErrorIs(t, back.Err(), core.ErrDestinationNotFound)
	})

	t.Run("Collaborator", func(t *testing.T) {
		res := core.ResultFromError(core.Collaborator("records", errors.New("disk on fire")))
		assert.Equal(t, core.CodeCollaborator, res.Code)
		assert.Contains(t, res.Error, "disk on fire")
	})

	t.Run("Plain Error Object Without Code", func(t *testing.T) {
		var res core.Result
		require.NoError(t, json.Unmarshal([]byte(`{"error":"boom"}`), &res))
		assert.Equal(t, "boom", res.Error)
		assert.Equal(t, "boom", res.Err().Error())
	})

	t.Run("Data Is Not An Error", func(t *testing.T) {
		var res core.Result
		require.NoError(t, json.Unmarshal([]byte(`[{"guid":"1"}]`), &res))
		assert.False(t, res.Failed())
		assert.NoError(t, res.Err())
	})
}
