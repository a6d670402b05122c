package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/roadgraph/roadgraph-backend/internal/models"
	"github.com/roadgraph/roadgraph-backend/internal/repository"
)

const apiKeyLength = 32

const apiKeyAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// CustomerService manages tenants and their API keys.
type CustomerService struct {
	repo repository.CustomerRepository
}

// NewCustomerService creates a new customer service.
func NewCustomerService(repo repository.CustomerRepository) *CustomerService {
	return &CustomerService{repo: repo}
}

// Create persists a new customer, generating an API key when none is given.
func (s *CustomerService) Create(ctx context.Context, name, apiKey string) (*models.Customer, error) {
	if apiKey == "" {
		generated, err := generateAPIKey(apiKeyLength)
		if err != nil {
			return nil, fmt.Errorf("generate api key: %w", err)
		}
		apiKey = generated
	}
	c := &models.Customer{Name: name, APIKey: apiKey}
	if err := s.repo.CreateCustomer(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns a customer by id.
func (s *CustomerService) Get(ctx context.Context, id int64) (*models.Customer, error) {
	return s.repo.GetCustomer(ctx, id)
}

// GetByAPIKey resolves an API key to its customer.
func (s *CustomerService) GetByAPIKey(ctx context.Context, apiKey string) (*models.Customer, error) {
	return s.repo.GetCustomerByAPIKey(ctx, apiKey)
}

// Update changes a customer's name.
func (s *CustomerService) Update(ctx context.Context, id int64, name string) (*models.Customer, error) {
	c, err := s.repo.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	if name != "" {
		c.Name = name
	}
	if err := s.repo.UpdateCustomer(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func generateAPIKey(length int) (string, error) {
	key := make([]byte, length)
	max := big.NewInt(int64(len(apiKeyAlphabet)))
	for i := range key {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		key[i] = apiKeyAlphabet[n.Int64()]
	}
	return string(key), nil
}
