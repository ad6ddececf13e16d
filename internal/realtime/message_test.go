package realtime

import (
	"encoding/json"
	"testing"
)

func TestID_AcceptsNumberAndString(t *testing.T) {
	cases := []struct {
		in   string
		want ID
		err  bool
	}{
		{`{"room_id": 7}`, 7, false},
		{`{"room_id": "7"}`, 7, false},
		{`{"room_id": ""}`, 0, false},
		{`{"room_id": null}`, 0, false},
		{`{}`, 0, false},
		{`{"room_id": "abc"}`, 0, true},
	}
	for _, tc := range cases {
		var req RoomRequest
		err := json.Unmarshal([]byte(tc.in), &req)
		if tc.err != (err != nil) {
			t.Fatalf("%s: err = %v", tc.in, err)
		}
		if !tc.err && req.RoomID != tc.want {
			t.Fatalf("%s: got %d", tc.in, req.RoomID)
		}
	}
}

func TestSignalRequest_BodyPrefersPayload(t *testing.T) {
	var req SignalRequest
	_ = json.Unmarshal([]byte(`{"room_id":1,"target_user_id":2,"offer":{"sdp":"old"},"payload":{"sdp":"new"}}`), &req)
	if string(req.Body()) != `{"sdp":"new"}` {
		t.Fatalf("body = %s", req.Body())
	}

	req = SignalRequest{}
	_ = json.Unmarshal([]byte(`{"room_id":1,"target_user_id":2,"candidate":{"candidate":"c"}}`), &req)
	if string(req.Body()) != `{"candidate":"c"}` {
		t.Fatalf("body = %s", req.Body())
	}
}
