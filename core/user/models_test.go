package user

import "testing"

func TestTierRank(t *testing.T) {
	tests := []struct {
		tier     string
		wantRank int
		wantOk   bool
	}{
		{tier: TierAdmin, wantRank: 0, wantOk: true},
		{tier: TierFinance, wantRank: 1, wantOk: true},
		{tier: TierFrontDesk, wantRank: 2, wantOk: true},
		{tier: "manager", wantRank: 0, wantOk: false},
		{tier: "", wantRank: 0, wantOk: false},
		{tier: "ADMIN", wantRank: 0, wantOk: false}, // tiers are stored lowercased
	}
	for _, tt := range tests {
		t.Run(tt.tier, func(t *testing.T) {
			rank, ok := TierRank(tt.tier)
			if ok != tt.wantOk {
				t.Errorf("TierRank() ok = %v, want %v", ok, tt.wantOk)
			}
			if ok && rank != tt.wantRank {
				t.Errorf("TierRank() rank = %v, want %v", rank, tt.wantRank)
			}
		})
	}
}

func TestIsAuthorized(t *testing.T) {
	tests := []struct {
		name                string
		principal, required string
		want                bool
	}{
		{name: "admin on admin gate", principal: TierAdmin, required: TierAdmin, want: true},
		{name: "admin on finance gate", principal: TierAdmin, required: TierFinance, want: true},
		{name: "admin on frontdesk gate", principal: TierAdmin, required: TierFrontDesk, want: true},
		{name: "finance on admin gate", principal: TierFinance, required: TierAdmin, want: false},
		{name: "finance on finance gate", principal: TierFinance, required: TierFinance, want: true},
		{name: "finance on frontdesk gate", principal: TierFinance, required: TierFrontDesk, want: true},
		{name: "frontdesk on finance gate", principal: TierFrontDesk, required: TierFinance, want: false},
		{name: "frontdesk on frontdesk gate", principal: TierFrontDesk, required: TierFrontDesk, want: true},
		{name: "unknown principal fails closed", principal: "superadmin", required: TierFrontDesk, want: false},
		{name: "empty principal fails closed", principal: "", required: TierFrontDesk, want: false},
		{name: "unknown gate fails closed", principal: TierAdmin, required: "owner", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAuthorized(tt.principal, tt.required); got != tt.want {
				t.Errorf("IsAuthorized(%q, %q) = %v, want %v", tt.principal, tt.required, got, tt.want)
			}
		})
	}
}

func TestUserCan(t *testing.T) {
	usr := User{Tier: TierFinance}
	if !usr.Can(TierFrontDesk) {
		t.Error("finance operator should clear the frontdesk gate")
	}
	if usr.Can(TierAdmin) {
		t.Error("finance operator must not clear the admin gate")
	}
	usr.Tier = "intern"
	if usr.Can(TierFrontDesk) {
		t.Error("unknown tier must fail closed")
	}
}
