// Package pix builds EMV-formatted BRCode payloads for PIX payments,
// per the Banco Central do Brasil dynamic QR specification.
package pix

import (
	"fmt"
	"regexp"
	"strings"
)

type BRCodeParams struct {
	Key          string // CPF, CNPJ, email, phone or random key
	MerchantName string
	MerchantCity string
	TxID         string // reference label, alphanumeric, max 25 chars
	Amount       int64  // cents
}

var (
	keyStrip   = regexp.MustCompile(`[^0-9a-z@.\-]`)
	textStrip  = regexp.MustCompile(`[^A-Za-z0-9 .\-]`)
	alnumStrip = regexp.MustCompile(`[^A-Za-z0-9]`)
	spaceFold  = regexp.MustCompile(`\s+`)
)

// BRCode assembles the full TLV payload, CRC included.
func BRCode(p BRCodeParams) (string, error) {
	key := keyStrip.ReplaceAllString(strings.ToLower(strings.TrimSpace(p.Key)), "")
	if key == "" {
		return "", fmt.Errorf("pix: invalid or empty key")
	}

	var b strings.Builder
	// Format indicator and point of initiation (11 = fixed amount).
	b.WriteString("000201")
	if p.Amount > 0 {
		b.WriteString("010211")
	} else {
		b.WriteString("010212")
	}

	// Merchant account information: GUID + key, nested under tag 26.
	account := tlv("00", "BR.GOV.BCB.PIX") + tlv("01", key)
	b.WriteString(tlv("26", account))

	// Category 0000, currency 986 (BRL).
	b.WriteString("52040000")
	b.WriteString("5303986")

	if p.Amount > 0 {
		b.WriteString(tlv("54", fmt.Sprintf("%d.%02d", p.Amount/100, p.Amount%100)))
	}

	b.WriteString("5802BR")
	b.WriteString(tlv("59", normalize(p.MerchantName, 25, true)))
	b.WriteString(tlv("60", normalize(p.MerchantCity, 15, true)))

	if txid := normalize(p.TxID, 25, false); txid != "" {
		b.WriteString(tlv("62", tlv("05", txid)))
	}

	// CRC covers everything up to and including the "6304" tag header.
	payload := b.String() + "6304"
	return payload + CRC16(payload), nil
}

// CRC16 is CRC-16/CCITT-FALSE over the ASCII bytes, upper-case hex.
func CRC16(data string) string {
	crc := 0xFFFF
	for i := 0; i < len(data); i++ {
		crc ^= int(data[i]) << 8
		for j := 0; j < 8; j++ {
			crc <<= 1
			if crc&0x10000 != 0 {
				crc ^= 0x1021
			}
			crc &= 0xFFFF
		}
	}
	return fmt.Sprintf("%04X", crc)
}

func tlv(tag, value string) string {
	return fmt.Sprintf("%s%02d%s", tag, len(value), value)
}

func normalize(value string, maxLen int, allowSpace bool) string {
	var s string
	if allowSpace {
		s = textStrip.ReplaceAllString(value, "")
		s = strings.TrimSpace(spaceFold.ReplaceAllString(s, " "))
	} else {
		s = alnumStrip.ReplaceAllString(value, "")
	}
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return s
}
