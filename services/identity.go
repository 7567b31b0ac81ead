package services

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	appcontext "github.com/alphabatem/common/context"
	"github.com/golang-jwt/jwt/v5"
	"github.com/learnproof/learnproof-api/dto"
	"github.com/learnproof/learnproof-api/shared"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"
)

const (
	IDENTITY_SVC = "identity_svc"

	defaultFirebaseCertURL = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"
	defaultCertMaxAge      = time.Hour
	maxIdentityCacheTTL    = time.Hour
)

// FirebaseIdentityService verifies Firebase ID tokens against Google's rotating signing certificates.
type FirebaseIdentityService struct {
	appcontext.DefaultService

	projectID  string
	certURL    string
	httpClient *http.Client
	cache      *RedisService
	now        func() time.Time

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	keysUntil time.Time
	fetch     singleflight.Group
}

type firebaseClaims struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	jwt.RegisteredClaims
}

func NewFirebaseIdentityService(projectID, certURL string, httpClient *http.Client, cache *RedisService) *FirebaseIdentityService {
	svc := &FirebaseIdentityService{
		projectID:  projectID,
		certURL:    certURL,
		httpClient: httpClient,
		cache:      cache,
	}
	svc.setDefaults()
	return svc
}

func (svc *FirebaseIdentityService) setDefaults() {
	if svc.certURL == "" {
		svc.certURL = defaultFirebaseCertURL
	}
	if svc.httpClient == nil {
		svc.httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if svc.now == nil {
		svc.now = time.Now
	}
}

func (svc *FirebaseIdentityService) Id() string {
	return IDENTITY_SVC
}

func (svc *FirebaseIdentityService) Configure(ctx *appcontext.Context) error {
	svc.projectID = os.Getenv("FIREBASE_PROJECT_ID")
	svc.certURL = os.Getenv("FIREBASE_CERT_URL")
	svc.setDefaults()

	return svc.DefaultService.Configure(ctx)
}

func (svc *FirebaseIdentityService) Start() error {
	if svc.projectID == "" {
		return errors.New("FIREBASE_PROJECT_ID is required")
	}
	svc.cache = svc.Service(REDIS_SVC).(*RedisService)
	return nil
}

func tokenCacheKey(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return "idtoken:" + hex.EncodeToString(sum[:])
}

// Verify checks signature, audience, issuer and expiry of a Firebase ID token.
func (svc *FirebaseIdentityService) Verify(ctx context.Context, token string) (*dto.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, shared.NewUnauthorizedError(nil, "Missing credentials")
	}

	cacheKey := tokenCacheKey(token)
	var cached dto.Identity
	if ok, err := svc.cache.GetJSON(ctx, cacheKey, &cached); err == nil && ok {
		return &cached, nil
	}

	var claims firebaseClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token has no key id")
		}
		return svc.publicKey(ctx, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(svc.projectID),
		jwt.WithIssuer("https://securetoken.google.com/"+svc.projectID),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(svc.now),
	)
	if err != nil {
		if appErr, ok := shared.GetAppError(err); ok {
			return nil, appErr
		}
		log.WithError(err).Debug("ID token rejected")
		return nil, shared.NewUnauthorizedError(err, "Invalid credentials")
	}

	if claims.Subject == "" {
		return nil, shared.NewUnauthorizedError(nil, "Invalid credentials")
	}

	identity := &dto.Identity{
		Subject: claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Picture: claims.Picture,
	}

	if claims.ExpiresAt != nil {
		ttl := claims.ExpiresAt.Sub(svc.now())
		if ttl > maxIdentityCacheTTL {
			ttl = maxIdentityCacheTTL
		}
		if ttl > 0 && svc.cache.Enabled() {
			if err := svc.cache.Set(ctx, cacheKey, identity, ttl); err != nil {
				log.WithError(err).Warn("Failed to cache verified identity")
			}
		}
	}

	return identity, nil
}

func (svc *FirebaseIdentityService) publicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	svc.mu.RLock()
	key, ok := svc.keys[kid]
	fresh := svc.now().Before(svc.keysUntil)
	svc.mu.RUnlock()
	if ok && fresh {
		return key, nil
	}
	if fresh {
		// A fresh set is authoritative: unknown kids are rejected without a fetch.
		return nil, fmt.Errorf("unknown signing key %q", kid)
	}

	_, err, _ := svc.fetch.Do("certs", func() (interface{}, error) {
		return nil, svc.refreshKeys(ctx)
	})
	if err != nil {
		return nil, shared.NewUpstreamError(err, "Identity provider unavailable")
	}

	svc.mu.RLock()
	defer svc.mu.RUnlock()
	if key, ok := svc.keys[kid]; ok {
		return key, nil
	}
	return nil, fmt.Errorf("unknown signing key %q", kid)
}

func (svc *FirebaseIdentityService) refreshKeys(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, svc.certURL, nil)
	if err != nil {
		return err
	}

	resp, err := svc.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch signing certificates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch signing certificates: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	var certs map[string]string
	if err := shared.JSONUnmarshal(body, &certs); err != nil {
		return fmt.Errorf("decode signing certificates: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(certs))
	for kid, certPEM := range certs {
		key, err := parseRSACertificate(certPEM)
		if err != nil {
			log.WithError(err).WithField("kid", kid).Warn("Skipping unparsable signing certificate")
			continue
		}
		keys[kid] = key
	}
	if len(keys) == 0 {
		return errors.New("no usable signing certificates")
	}

	svc.mu.Lock()
	svc.keys = keys
	svc.keysUntil = svc.now().Add(cacheMaxAge(resp.Header.Get("Cache-Control")))
	svc.mu.Unlock()

	return nil
}

func parseRSACertificate(certPEM string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(certPEM))
	if block == nil {
		return nil, errors.New("no PEM block")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("certificate does not hold an RSA key")
	}
	return key, nil
}

func cacheMaxAge(header string) time.Duration {
	for _, directive := range strings.Split(header, ",") {
		directive = strings.TrimSpace(directive)
		if v, ok := strings.CutPrefix(directive, "max-age="); ok {
			if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
				return time.Duration(secs) * time.Second
			}
		}
	}
	return defaultCertMaxAge
}
