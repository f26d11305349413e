package main

import (
	"reflect"
	"testing"
	"time"

	"github.com/lucasbalieiro/cpuminer-stratum-v2/infrastructure/network/poolclient"
	"github.com/lucasbalieiro/cpuminer-stratum-v2/infrastructure/network/securechannel"
)

const block1HeaderHex = "01000000" +
	"6fe28c0ab6f1b372c1a6a246ae63f74f931e8365e15a089c68d6190000000000" +
	"982051fd1e4ba744bbbe680e1fee14677ba1a3c3540bf7b1cdb606e857233e0e" +
	"61bc6649" + "ffff001d" + "01e36299"

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := parseConfigArgs(nil)
	if err != nil {
		t.Fatalf("parseConfigArgs: unexpected error %+v", err)
	}
	if cfg.Address != defaultAddress {
		t.Errorf("parseConfigArgs: got address %s, want %s", cfg.Address, defaultAddress)
	}
	if cfg.timeout != 10*time.Second {
		t.Errorf("parseConfigArgs: got timeout %s, want 10s", cfg.timeout)
	}
	if cfg.authorityKey == nil {
		t.Errorf("parseConfigArgs: the default authority key wasn't parsed")
	}
	if cfg.nonceRange != nil {
		t.Errorf("parseConfigArgs: got nonce range %+v, want none", cfg.nonceRange)
	}

	setup := cfg.setupConfig()
	if *setup != *poolclient.DefaultSetupConfig() {
		t.Errorf("setupConfig: got %+v, want the defaults", setup)
	}
}

func TestParseConfig(t *testing.T) {
	args := []string{
		"-a", "pool.example.com:34254",
		"-t", "3",
		"--noencryption",
		"--deviceid", "rig-7",
		"--minversion", "2", "--maxversion", "3",
		"--flags", "4",
		"--header", block1HeaderHex,
		"--nonce-range", "0x10:100",
		"--skip-handshake",
	}
	cfg, err := parseConfigArgs(args)
	if err != nil {
		t.Fatalf("parseConfigArgs: unexpected error %+v", err)
	}
	if cfg.timeout != 3*time.Second {
		t.Errorf("parseConfigArgs: got timeout %s, want 3s", cfg.timeout)
	}
	if cfg.authorityKey != nil {
		t.Errorf("parseConfigArgs: parsed an authority key with --noencryption")
	}
	if cfg.nonceRange == nil || *cfg.nonceRange != (nonceRange{start: 0x10, end: 100}) {
		t.Errorf("parseConfigArgs: got nonce range %+v, want 16:100", cfg.nonceRange)
	}

	setup := cfg.setupConfig()
	if setup.DeviceID != "rig-7" || setup.MinVersion != 2 || setup.MaxVersion != 3 || setup.Flags != 4 {
		t.Errorf("setupConfig: got %+v", setup)
	}
	if setup.Vendor != poolclient.DefaultVendor {
		t.Errorf("setupConfig: got vendor %s, want %s", setup.Vendor, poolclient.DefaultVendor)
	}
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"zero timeout", []string{"--timeout", "0"}},
		{"inverted versions", []string{"--minversion", "3", "--maxversion", "2"}},
		{"skip handshake without header", []string{"--skip-handshake"}},
		{"nonce range without header", []string{"--nonce-range", "1:2"}},
		{"transactions without header", []string{"--transactions", "00"}},
		{"authority key without encryption", []string{"--noencryption", "--authority-pubkey", "abc"}},
		{"x25519 without encryption", []string{"--noencryption", "--x25519"}},
		{"invalid authority key", []string{"--authority-pubkey", "abc"}},
		{"proxy user without proxy", []string{"--proxyuser", "user"}},
		{"invalid nonce range", []string{"--header", block1HeaderHex, "--nonce-range", "5"}},
		{"privileged profile port", []string{"--profile", "80"}},
		{"non numeric profile port", []string{"--profile", "pprof"}},
		{"unknown flag", []string{"--unknown"}},
	}

	for _, test := range tests {
		_, err := parseConfigArgs(test.args)
		if err == nil {
			t.Errorf("parseConfigArgs %s: expected an error", test.name)
		}
	}
}

func TestNewPoolClientConfigChannel(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want securechannel.SecureChannel
	}{
		{"default", nil, &securechannel.EllSwiftChannel{}},
		{"x25519", []string{"--x25519"}, &securechannel.NoiseChannel{}},
		{"plaintext", []string{"--noencryption"}, &securechannel.PlaintextChannel{}},
	}

	for _, test := range tests {
		cfg, err := parseConfigArgs(test.args)
		if err != nil {
			t.Fatalf("parseConfigArgs %s: unexpected error %+v", test.name, err)
		}
		clientConfig, err := newPoolClientConfig(cfg, nil)
		if err != nil {
			t.Fatalf("newPoolClientConfig %s: unexpected error %+v", test.name, err)
		}
		if reflect.TypeOf(clientConfig.Channel) != reflect.TypeOf(test.want) {
			t.Errorf("newPoolClientConfig %s: got channel %T, want %T", test.name, clientConfig.Channel, test.want)
		}
	}
}

func TestParseConfigVersionWithErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"--version", "--unknown"}},
		{"malformed timeout", []string{"-V", "--timeout", "x"}},
		{"invalid authority key", []string{"-V", "--authority-pubkey", "abc"}},
	}

	for _, test := range tests {
		cfg, _ := parseConfigArgs(test.args)
		if cfg == nil {
			t.Errorf("parseConfigArgs %s: got a nil config", test.name)
			continue
		}
		if !cfg.ShowVersion {
			t.Errorf("parseConfigArgs %s: ShowVersion is false", test.name)
		}
	}
}

func TestParseNonceRange(t *testing.T) {
	tests := []struct {
		in        string
		wantStart uint32
		wantEnd   uint32
		wantErr   bool
	}{
		{in: "0:100", wantStart: 0, wantEnd: 100},
		{in: "0x10:0x20", wantStart: 0x10, wantEnd: 0x20},
		{in: "4294967295:0", wantStart: 0xffffffff, wantEnd: 0},
		{in: " 7 : 9 ", wantStart: 7, wantEnd: 9},
		{in: "1", wantErr: true},
		{in: "1:2:3", wantErr: true},
		{in: "a:b", wantErr: true},
		{in: "1:4294967296", wantErr: true},
		{in: "-1:2", wantErr: true},
	}

	for _, test := range tests {
		start, end, err := parseNonceRange(test.in)
		if test.wantErr {
			if err == nil {
				t.Errorf("parseNonceRange(%q): expected an error", test.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseNonceRange(%q): unexpected error %v", test.in, err)
			continue
		}
		if start != test.wantStart || end != test.wantEnd {
			t.Errorf("parseNonceRange(%q): got %d:%d, want %d:%d",
				test.in, start, end, test.wantStart, test.wantEnd)
		}
	}
}

func TestNonceRangeContains(t *testing.T) {
	tests := []struct {
		r     nonceRange
		nonce uint32
		want  bool
	}{
		{nonceRange{10, 20}, 10, true},
		{nonceRange{10, 20}, 20, true},
		{nonceRange{10, 20}, 21, false},
		{nonceRange{10, 20}, 9, false},
		{nonceRange{0xfffffff0, 0x10}, 0xffffffff, true},
		{nonceRange{0xfffffff0, 0x10}, 0, true},
		{nonceRange{0xfffffff0, 0x10}, 0x11, false},
		{nonceRange{5, 4}, 12345, true},
	}

	for _, test := range tests {
		got := test.r.contains(test.nonce)
		if got != test.want {
			t.Errorf("contains(%+v, %d): got %t, want %t", test.r, test.nonce, got, test.want)
		}
	}
}
