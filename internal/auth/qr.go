package auth

import (
	"net/url"
	"strconv"
)

// QRLoginURL builds the link encoded in a student's QR code.
func QRLoginURL(baseURL, token string, classID int64) string {
	v := url.Values{}
	v.Set("token", token)
	v.Set("classId", strconv.FormatInt(classID, 10))
	return baseURL + "/qr-login?" + v.Encode()
}
