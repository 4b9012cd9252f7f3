package utils

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

type HostPortProtocol struct {
	IP       string `json:"ip"`
	Port     int    `json:"port"`
	Protocol string `json:"protocol"`
}

func trimProtocolPrefix(addr string) string {
	addr = strings.TrimPrefix(addr, "wss://")
	addr = strings.TrimPrefix(addr, "ws://")
	addr = strings.TrimPrefix(addr, "tcp://")
	addr = strings.TrimPrefix(addr, "https://")
	addr = strings.TrimPrefix(addr, "http://")
	return addr
}

func (t *HostPortProtocol) SetHostPort(ip string, port int) {
	ip = trimProtocolPrefix(ip)
	t.IP = ip
	t.Port = port
}

// Ignore the Protocol, return the http address. If port is 0, doesn't append it.
func (t *HostPortProtocol) HTTPAddressString() string {
	if t.Port != 0 {
		return fmt.Sprintf("http://%s:%d", t.IP, t.Port)
	}
	return fmt.Sprintf("http://%s", t.IP)
}

// WebsocketURL is the ws:// (or wss:// for https hosts) URL of path on this
// address.
func (t *HostPortProtocol) WebsocketURL(path string) string {
	scheme := "ws"
	if t.Protocol == "https" || t.Protocol == "wss" {
		scheme = "wss"
	}
	if t.Port != 0 {
		return fmt.Sprintf("%s://%s:%d%s", scheme, t.IP, t.Port, path)
	}
	return fmt.Sprintf("%s://%s%s", scheme, t.IP, path)
}

// This is the address string to use as arguments to net.Dial or net.Listen
// functions.
func (t *HostPortProtocol) BindString() string {
	if t.Port != 0 {
		return fmt.Sprintf("%s:%d", t.IP, t.Port)
	}
	return t.IP
}

func ResolveTCPAddress(addr string) (HostPortProtocol, error) {
	var protocol string

	switch {
	case strings.HasPrefix(addr, "http://"):
		protocol = "http"
	case strings.HasPrefix(addr, "https://"):
		protocol = "https"
	case strings.HasPrefix(addr, "ws://"):
		protocol = "ws"
	case strings.HasPrefix(addr, "wss://"):
		protocol = "wss"
	case strings.HasPrefix(addr, "tcp://"):
		protocol = "tcp"
	}

	addr = trimProtocolPrefix(addr)

	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return HostPortProtocol{}, err
	}
	return HostPortProtocol{
		IP:       tcpAddr.IP.String(),
		Port:     tcpAddr.Port,
		Protocol: protocol,
	}, nil
}

func CreateHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		MaxIdleConns: 20,

		// A client only ever talks to one host.
		MaxIdleConnsPerHost: 2,

		// We are working with long connection duration in our gamey use
		// case.
		IdleConnTimeout: 5 * time.Minute,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}
