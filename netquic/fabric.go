// Package netquic implements transport.Fabric over QUIC unidirectional
// streams. Adapted from the teacher's netquic.Node (listen/accept/read
// side) and netquic.PeerManager (dial/connection-pool/write side),
// generalized from an Envelope-addressed, PeerID-resolved overlay to a
// flat addr-string Fabric: this protocol's Node already knows concrete
// ip:port for every peer it talks to (carried in peer.Peer), so the
// teacher's RelayRegistry PeerID→addr reverse lookup has no role here —
// see DESIGN.md.
package netquic

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"math/big"
	"net"
	"sync"
	"time"

	quic "github.com/quic-go/quic-go"
	"go.uber.org/zap"

	"kadcore/frame"
	"kadcore/transport"
)

const idleTimeout = 3 * time.Minute

// Fabric is a QUIC-backed transport.Fabric: one UDP listener accepting
// unidirectional streams, plus a pooled set of outbound connections keyed
// by remote address.
type Fabric struct {
	log *zap.Logger

	localAddr string
	tlsConf   *tls.Config
	quicConf  *quic.Config

	mu       sync.Mutex
	handler  transport.Handler
	conns    map[string]*quic.Conn
	listener *quic.Listener
	closed   bool
}

// Listen opens a UDP socket at addr and starts accepting QUIC
// connections in the background. The returned Fabric has no Handler
// installed until Register is called.
func Listen(addr string, log *zap.Logger) (*Fabric, error) {
	if log == nil {
		log = zap.NewNop()
	}

	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("netquic: resolve %s: %w", addr, err)
	}
	udpConn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("netquic: listen %s: %w", addr, err)
	}

	tlsConf, err := generateTLSConfig()
	if err != nil {
		return nil, err
	}
	quicConf := &quic.Config{MaxIdleTimeout: idleTimeout}

	listener, err := quic.Listen(udpConn, tlsConf, quicConf)
	if err != nil {
		return nil, fmt.Errorf("netquic: quic.Listen: %w", err)
	}

	f := &Fabric{
		log:       log,
		localAddr: listener.Addr().String(),
		tlsConf:   tlsConf,
		quicConf:  quicConf,
		conns:     make(map[string]*quic.Conn),
		listener:  listener,
	}

	go f.acceptLoop()
	return f, nil
}

func (f *Fabric) acceptLoop() {
	for {
		conn, err := f.listener.Accept(context.Background())
		if err != nil {
			f.mu.Lock()
			closed := f.closed
			f.mu.Unlock()
			if !closed {
				f.log.Warn("accept error", zap.Error(err))
			}
			return
		}
		go f.handleConn(conn)
	}
}

func (f *Fabric) handleConn(conn *quic.Conn) {
	for {
		stream, err := conn.AcceptUniStream(context.Background())
		if err != nil {
			return
		}
		go f.handleStream(stream, conn)
	}
}

func (f *Fabric) handleStream(stream *quic.ReceiveStream, conn *quic.Conn) {
	data, err := io.ReadAll(stream)
	if err != nil {
		f.log.Warn("read stream", zap.Error(err))
		return
	}

	_, payload, err := frame.Decode(data)
	if err != nil {
		f.log.Warn("frame decode", zap.Error(err))
		return
	}

	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h != nil {
		h.Handle(conn.RemoteAddr().String(), payload)
	}
}

// Register implements transport.Fabric.
func (f *Fabric) Register(localAddr string, h transport.Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.localAddr = localAddr
	f.handler = h
}

// LocalAddr implements transport.Fabric.
func (f *Fabric) LocalAddr() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.localAddr
}

// getConn returns a pooled connection to addr, dialing a new one if none
// is live.
func (f *Fabric) getConn(addr string) (*quic.Conn, error) {
	f.mu.Lock()
	conn := f.conns[addr]
	f.mu.Unlock()
	if conn != nil && conn.Context().Err() == nil {
		return conn, nil
	}

	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("netquic: resolve %s: %w", addr, err)
	}
	udpConn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, fmt.Errorf("netquic: dial socket: %w", err)
	}

	newConn, err := quic.Dial(context.Background(), udpConn, udpAddr, f.tlsConf, f.quicConf)
	if err != nil {
		return nil, fmt.Errorf("netquic: dial %s: %w", addr, err)
	}

	f.mu.Lock()
	f.conns[addr] = newConn
	f.mu.Unlock()
	return newConn, nil
}

// Send implements transport.Fabric: it opens a unidirectional stream to
// addr (dialing or reusing a pooled connection), frames payload, writes
// it, and closes the stream so the remote's io.ReadAll returns.
func (f *Fabric) Send(ctx context.Context, addr string, payload []byte) error {
	conn, err := f.getConn(addr)
	if err != nil {
		return err
	}

	stream, err := conn.OpenUniStreamSync(ctx)
	if err != nil {
		return fmt.Errorf("netquic: open stream to %s: %w", addr, err)
	}

	raw := frame.Build(frame.TypeNormal, payload)
	if _, err := stream.Write(raw); err != nil {
		return fmt.Errorf("netquic: write to %s: %w", addr, err)
	}
	return stream.Close()
}

// Close implements transport.Fabric.
func (f *Fabric) Close() error {
	f.mu.Lock()
	f.closed = true
	conns := make([]*quic.Conn, 0, len(f.conns))
	for _, c := range f.conns {
		conns = append(conns, c)
	}
	f.mu.Unlock()

	for _, c := range conns {
		c.CloseWithError(0, "closing")
	}
	return f.listener.Close()
}

// generateTLSConfig builds a self-signed ECDSA certificate, sufficient
// for an internal P2P mesh with no external CA trust requirement.
func generateTLSConfig() (*tls.Config, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("netquic: generate key: %w", err)
	}

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &priv.PublicKey, priv)
	if err != nil {
		return nil, fmt.Errorf("netquic: create certificate: %w", err)
	}

	return &tls.Config{
		InsecureSkipVerify: true,
		NextProtos:         []string{"kadcore-quic"},
		Certificates:       []tls.Certificate{{Certificate: [][]byte{der}, PrivateKey: priv}},
	}, nil
}
