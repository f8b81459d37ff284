package web

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
)

const cookieName = "tablesearch_visitor"

// Visitors issues and reads the signed cookie that ties a browser to its
// search session.
type Visitors struct{ sc *securecookie.SecureCookie }

func NewVisitors(hashKey, blockKey []byte) *Visitors {
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(int((7 * 24 * time.Hour).Seconds()))
	return &Visitors{sc: sc}
}

// Ensure returns the visitor id on the request, minting and setting a new
// one when the cookie is missing or does not decode.
func (v *Visitors) Ensure(w http.ResponseWriter, r *http.Request) (string, error) {
	if id, ok := v.ID(r); ok {
		return id, nil
	}
	id := uuid.NewString()
	encoded, err := v.sc.Encode(cookieName, map[string]string{"vid": id})
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name: cookieName, Value: encoded, Path: "/",
		HttpOnly: true, SameSite: http.SameSiteLaxMode,
		Secure: r.TLS != nil,
	})
	return id, nil
}

func (v *Visitors) ID(r *http.Request) (string, bool) {
	c, err := r.Cookie(cookieName)
	if err != nil {
		return "", false
	}
	value := map[string]string{}
	if err := v.sc.Decode(cookieName, c.Value, &value); err != nil {
		return "", false
	}
	id := value["vid"]
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

func (v *Visitors) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name: cookieName, Value: "", Path: "/", MaxAge: -1,
		HttpOnly: true, SameSite: http.SameSiteLaxMode,
	})
}
