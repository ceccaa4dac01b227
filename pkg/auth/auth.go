// Package auth builds the request signer for one of the supported
// authentication modes and pins it to the tenancy's home region.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/oracle/oci-go-sdk/v65/common"
	ociauth "github.com/oracle/oci-go-sdk/v65/common/auth"
	"github.com/oracle/oci-go-sdk/v65/identity"
	"github.com/sirupsen/logrus"
)

// Environment variables consulted in delegation token mode.
const (
	EnvConfigFile    = "OCI_CONFIG_FILE"
	EnvConfigProfile = "OCI_CONFIG_PROFILE"
)

var (
	ErrAuth         = errors.New("authentication failed")
	ErrConfig       = errors.New("configuration error")
	ErrNoHomeRegion = errors.New("no home region")
)

// Mode is one of InstancePrincipal, DelegationToken or ConfigFile.
type Mode interface {
	String() string
	isMode()
}

// InstancePrincipal signs as the compute instance running the tool.
type InstancePrincipal struct{}

// DelegationToken signs with the token referenced by the profile named in
// OCI_CONFIG_FILE / OCI_CONFIG_PROFILE.
type DelegationToken struct{}

// ConfigFile signs with the API key of a config file profile. Empty fields
// select the default location and profile.
type ConfigFile struct {
	Path    string
	Profile string
}

func (InstancePrincipal) isMode() {}
func (DelegationToken) isMode()   {}
func (ConfigFile) isMode()        {}

func (InstancePrincipal) String() string { return "instance_principal" }
func (DelegationToken) String() string   { return "delegation_token" }
func (ConfigFile) String() string        { return "config_file" }

// Context is the resolved signing identity for one run.
type Context struct {
	Region    string
	TenancyID string
	Provider  common.ConfigurationProvider
}

// RegionClient lists the regions a tenancy is subscribed to.
type RegionClient interface {
	ListRegionSubscriptions(ctx context.Context, request identity.ListRegionSubscriptionsRequest) (identity.ListRegionSubscriptionsResponse, error)
}

// Resolver turns a Mode into a Context.
type Resolver struct {
	log    logrus.FieldLogger
	getenv func(string) string

	instancePrincipal func() (common.ConfigurationProvider, error)
	delegationToken   func(token string) (common.ConfigurationProvider, error)
	regionClient      func(common.ConfigurationProvider) (RegionClient, error)
}

// NewResolver returns a Resolver using the OCI SDK signers. A non-nil proxy
// is applied to the identity client.
func NewResolver(log logrus.FieldLogger, proxy *url.URL) *Resolver {
	return &Resolver{
		log:               log,
		getenv:            os.Getenv,
		instancePrincipal: ociauth.InstancePrincipalConfigurationProvider,
		delegationToken: func(token string) (common.ConfigurationProvider, error) {
			return ociauth.InstancePrincipalDelegationTokenConfigurationProvider(&token)
		},
		regionClient: func(p common.ConfigurationProvider) (RegionClient, error) {
			client, err := identity.NewIdentityClientWithConfigurationProvider(p)
			if err != nil {
				return nil, err
			}
			UseProxy(&client.BaseClient, proxy)
			return client, nil
		},
	}
}

// Resolve builds the signer for mode. Every mode except InstancePrincipal
// is then moved to the tenancy's home region.
func (r *Resolver) Resolve(ctx context.Context, mode Mode) (*Context, error) {
	log := r.log.WithField("auth", mode.String())

	switch m := mode.(type) {
	case InstancePrincipal:
		return r.resolveInstancePrincipal(log)
	case DelegationToken:
		return r.resolveDelegationToken(ctx, log)
	case ConfigFile:
		return r.resolveConfigFile(ctx, log, m)
	default:
		return nil, fmt.Errorf("%w: unsupported authentication mode %T", ErrConfig, mode)
	}
}

func (r *Resolver) resolveInstancePrincipal(log logrus.FieldLogger) (*Context, error) {
	provider, err := r.instancePrincipal()
	if err != nil {
		return nil, fmt.Errorf("%w: obtaining instance principals certificate: %v", ErrAuth, err)
	}
	tenancy, err := provider.TenancyOCID()
	if err != nil {
		return nil, fmt.Errorf("%w: reading tenancy from instance principal: %v", ErrAuth, err)
	}
	region, err := provider.Region()
	if err != nil {
		return nil, fmt.Errorf("%w: reading region from instance principal: %v", ErrAuth, err)
	}

	log.WithFields(logrus.Fields{"tenancy": tenancy, "region": region}).Debug("using instance principal")
	return &Context{Region: region, TenancyID: tenancy, Provider: provider}, nil
}

func (r *Resolver) resolveDelegationToken(ctx context.Context, log logrus.FieldLogger) (*Context, error) {
	configFile := r.getenv(EnvConfigFile)
	configProfile := r.getenv(EnvConfigProfile)
	if configFile == "" || configProfile == "" {
		return nil, fmt.Errorf("%w: %s and %s env variables not found", ErrConfig, EnvConfigFile, EnvConfigProfile)
	}

	profile, err := LoadProfile(configFile, configProfile)
	if err != nil {
		return nil, err
	}
	if profile.DelegationTokenFile == "" {
		return nil, fmt.Errorf("%w: profile %q has no delegation_token_file", ErrConfig, profile.Name)
	}

	raw, err := os.ReadFile(expandHome(profile.DelegationTokenFile))
	if err != nil {
		return nil, err
	}
	provider, err := r.delegationToken(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, err
	}

	tenancy := profile.Tenancy
	if tenancy == "" {
		if tenancy, err = provider.TenancyOCID(); err != nil {
			return nil, err
		}
	}
	if profile.Region != "" {
		provider = withRegion(provider, profile.Region)
	}

	log.WithField("tenancy", tenancy).Debug("using delegation token")
	return r.homeRegion(ctx, log, provider, tenancy)
}

func (r *Resolver) resolveConfigFile(ctx context.Context, log logrus.FieldLogger, m ConfigFile) (*Context, error) {
	profile, err := LoadProfile(m.Path, m.Profile)
	if err != nil {
		return nil, err
	}
	if err := profile.validate(); err != nil {
		return nil, err
	}
	key, err := profile.privateKey()
	if err != nil {
		return nil, err
	}

	var passphrase *string
	if profile.PassPhrase != "" {
		passphrase = common.String(profile.PassPhrase)
	}
	provider := common.NewRawConfigurationProvider(profile.Tenancy, profile.User, profile.Region, profile.Fingerprint, key, passphrase)
	if _, err := provider.PrivateRSAKey(); err != nil {
		return nil, fmt.Errorf("%w: parsing private key of profile %q: %v", ErrConfig, profile.Name, err)
	}

	log.WithFields(logrus.Fields{"tenancy": profile.Tenancy, "profile": profile.Name}).Debug("using config file")
	return r.homeRegion(ctx, log, provider, profile.Tenancy)
}

// homeRegion looks up the tenancy's home region and returns a Context whose
// provider reports it.
func (r *Resolver) homeRegion(ctx context.Context, log logrus.FieldLogger, provider common.ConfigurationProvider, tenancy string) (*Context, error) {
	client, err := r.regionClient(provider)
	if err != nil {
		return nil, fmt.Errorf("creating identity client: %w", err)
	}
	resp, err := client.ListRegionSubscriptions(ctx, identity.ListRegionSubscriptionsRequest{TenancyId: common.String(tenancy)})
	if err != nil {
		return nil, fmt.Errorf("listing region subscriptions: %w", err)
	}

	region, err := HomeRegion(resp.Items)
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{"tenancy": tenancy, "region": region}).Info("resolved home region")
	return &Context{Region: region, TenancyID: tenancy, Provider: withRegion(provider, region)}, nil
}

// HomeRegion returns the name of the subscription flagged as home region.
func HomeRegion(subs []identity.RegionSubscription) (string, error) {
	for _, s := range subs {
		if s.IsHomeRegion != nil && *s.IsHomeRegion && s.RegionName != nil {
			return *s.RegionName, nil
		}
	}
	return "", fmt.Errorf("%w: none of %d subscribed regions is flagged as home region", ErrNoHomeRegion, len(subs))
}

// regionProvider overrides the region reported by a provider.
type regionProvider struct {
	common.ConfigurationProvider
	region string
}

func (p regionProvider) Region() (string, error) {
	return p.region, nil
}

func withRegion(p common.ConfigurationProvider, region string) common.ConfigurationProvider {
	if rp, ok := p.(regionProvider); ok {
		p = rp.ConfigurationProvider
	}
	return regionProvider{ConfigurationProvider: p, region: region}
}

// DefaultTimeout matches the OCI SDK's own HTTP client timeout.
const DefaultTimeout = 60 * time.Second

// ParseProxy parses a proxy given as host:port or a full URL. An empty
// proxy returns nil.
func ParseProxy(proxy string) (*url.URL, error) {
	if proxy == "" {
		return nil, nil
	}
	raw := proxy
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid proxy %q", ErrConfig, proxy)
	}
	return u, nil
}

// UseProxy routes the client's requests through proxy. The SDK's HTTP
// client is copied with a cloned transport, so its timeout and TLS settings
// are kept. A nil proxy leaves the client untouched.
func UseProxy(client *common.BaseClient, proxy *url.URL) {
	if proxy == nil {
		return
	}

	hc := &http.Client{Timeout: DefaultTimeout}
	if sdk, ok := client.HTTPClient.(*http.Client); ok && sdk != nil {
		copied := *sdk
		hc = &copied
	}

	var tp *http.Transport
	if t, ok := hc.Transport.(*http.Transport); ok && t != nil {
		tp = t.Clone()
	} else {
		tp = http.DefaultTransport.(*http.Transport).Clone()
	}
	tp.Proxy = http.ProxyURL(proxy)
	hc.Transport = tp

	client.HTTPClient = hc
}
