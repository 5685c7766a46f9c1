package auth

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrUnauthenticated = errors.New("utilisateur non authentifié")

const (
	SourceLegacy = "legacy"
	SourceJWT    = "jwt"
)

// Principal : l'utilisateur au nom duquel le workflow s'exécute
type Principal struct {
	UserID uint
	Email  string
	Role   string
	Source string
}

func (p Principal) IsAdmin() bool {
	return strings.EqualFold(p.Role, "admin")
}

// Resolver transforme une requête (et l'userId annoncé dans le body/query) en Principal
type Resolver interface {
	Resolve(r *http.Request, claimedUserID int64) (Principal, error)
}

// LegacyResolver : tout userId strictement positif est accepté tel quel.
// À remplacer par JWTResolver dès que le front envoie un token.
type LegacyResolver struct{}

func (LegacyResolver) Resolve(_ *http.Request, claimedUserID int64) (Principal, error) {
	if claimedUserID <= 0 {
		return Principal{}, ErrUnauthenticated
	}
	return Principal{UserID: uint(claimedUserID), Source: SourceLegacy}, nil
}

// JWTResolver vérifie un Bearer token HMAC portant le claim user_id
type JWTResolver struct {
	Secret []byte
	Now    func() time.Time
}

func NewJWTResolver(secret string) *JWTResolver {
	return &JWTResolver{Secret: []byte(secret), Now: time.Now}
}

func (j *JWTResolver) Resolve(r *http.Request, claimedUserID int64) (Principal, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return Principal{}, ErrUnauthenticated
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		log.Printf("❌ Format Authorization invalide: %v parties", len(parts))
		return Principal{}, ErrUnauthenticated
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("méthode de signature inattendue: %v", token.Header["alg"])
		}
		return j.Secret, nil
	}, jwt.WithTimeFunc(j.Now))
	if err != nil {
		log.Printf("❌ Erreur parsing JWT: %v", err)
		return Principal{}, ErrUnauthenticated
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Principal{}, ErrUnauthenticated
	}

	userID, err := claimUserID(claims["user_id"])
	if err != nil || userID == 0 {
		log.Printf("❌ user_id manquant ou invalide dans claims: %+v", claims)
		return Principal{}, ErrUnauthenticated
	}
	// Le body ne peut pas agir pour le compte d'un autre utilisateur
	if claimedUserID > 0 && uint(claimedUserID) != userID {
		return Principal{}, ErrUnauthenticated
	}

	p := Principal{UserID: userID, Source: SourceJWT}
	p.Email, _ = claims["email"].(string)
	p.Role, _ = claims["role"].(string)
	return p, nil
}

// claim numérique (float64 en JSON) ou chaîne
func claimUserID(v interface{}) (uint, error) {
	switch id := v.(type) {
	case float64:
		if id <= 0 {
			return 0, fmt.Errorf("user_id négatif")
		}
		return uint(id), nil
	case string:
		n, err := strconv.ParseUint(id, 10, 64)
		return uint(n), err
	default:
		return 0, fmt.Errorf("user_id de type %T", v)
	}
}

// GenerateToken signe un token HS256 valable 24h
func GenerateToken(secret string, userID uint, email, role string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"email":   email,
		"role":    role,
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
