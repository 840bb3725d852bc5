package protocol

import "net"

func encodeInet(v any) ([]byte, error) {
	ip, ok := v.(net.IP)
	if !ok {
		s, ok2 := v.(string)
		if !ok2 {
			return nil, &MalformedValue{Type: "inet", Msg: "value is not a net.IP or string"}
		}
		ip = net.ParseIP(s)
		if ip == nil {
			return nil, &MalformedValue{Type: "inet", Msg: "not a valid IP address"}
		}
	}
	if v4 := ip.To4(); v4 != nil {
		return v4, nil
	}
	v6 := ip.To16()
	if v6 == nil {
		return nil, &MalformedValue{Type: "inet", Msg: "not a valid IPv4 or IPv6 address"}
	}
	return v6, nil
}

func decodeInet(b []byte) (any, error) {
	switch len(b) {
	case 4, 16:
		ip := make(net.IP, len(b))
		copy(ip, b)
		return ip, nil
	default:
		return nil, &MalformedValue{Type: "inet", Msg: "expected 4 or 16 bytes"}
	}
}
