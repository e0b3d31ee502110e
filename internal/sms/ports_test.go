package sms

import "testing"

func TestMessage_Validate(t *testing.T) {
	tests := []struct {
		name    string
		msg     Message
		wantErr bool
	}{
		{
			name: "valid",
			msg:  Message{NativeID: "1", Body: "hello", Timestamp: 1700000000000, Sender: "MPESA"},
		},
		{
			name:    "empty body",
			msg:     Message{NativeID: "1", Body: "   ", Timestamp: 1700000000000},
			wantErr: true,
		},
		{
			name:    "zero timestamp",
			msg:     Message{NativeID: "1", Body: "hello"},
			wantErr: true,
		},
		{
			name:    "negative timestamp",
			msg:     Message{NativeID: "1", Body: "hello", Timestamp: -5},
			wantErr: true,
		},
		{
			name: "missing native id is fine",
			msg:  Message{Body: "hello", Timestamp: 1700000000000},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.wantErr && err == nil {
				t.Error("Validate() = nil, want error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestMessage_FromProvider(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want bool
	}{
		{"sender MPESA", Message{Sender: "MPESA", Body: "any"}, true},
		{"sender mixed case", Message{Sender: "M-Pesa", Body: "any"}, true},
		{"body mention", Message{Sender: "SAFARICOM", Body: "New M-PESA balance is Ksh100.00"}, true},
		{"lowercase body", Message{Sender: "x", Body: "your mpesa statement"}, true},
		{"unrelated", Message{Sender: "BANKLTD", Body: "Your account balance is low"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.msg.FromProvider(); got != tt.want {
				t.Errorf("FromProvider() = %v, want %v", got, tt.want)
			}
		})
	}
}
