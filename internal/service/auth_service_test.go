package service_test

import (
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/domain"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/repository"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/service"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/utils"
)

func (s *IntegrationTestSuite) TestRegisterAndLogin() {
	res, err := s.AuthService.Register(s.Ctx, service.RegisterInput{
		Email:    "  Buyer@Example.com ",
		Password: "plaque2024",
		Name:     "Buyer",
	})
	s.Require().NoError(err)
	s.Equal("buyer@example.com", res.User.Email)
	s.Equal(domain.RoleCustomer, res.User.Role)

	claims, err := utils.ValidateToken("test-secret", res.Token)
	s.Require().NoError(err)
	s.Equal(res.User.ID, claims.UserID)

	_, err = s.AuthService.Register(s.Ctx, service.RegisterInput{Email: "buyer@example.com", Password: "plaque2024"})
	s.Require().ErrorIs(err, repository.ErrUserAlreadyExists)

	_, err = s.AuthService.Login(s.Ctx, "buyer@example.com", "wrong-pass1")
	s.Require().ErrorIs(err, service.ErrInvalidCredentials)

	logged, err := s.AuthService.Login(s.Ctx, "BUYER@example.com", "plaque2024")
	s.Require().NoError(err)
	s.Equal(res.User.ID, logged.User.ID)
}

func (s *IntegrationTestSuite) TestRegister_WeakPassword() {
	_, err := s.AuthService.Register(s.Ctx, service.RegisterInput{Email: "weak@example.com", Password: "short"})
	s.Require().Error(err)
}

func (s *IntegrationTestSuite) TestUpdateProfile_KeepsPassword() {
	user := s.registerUser("profile@example.com")

	name := "Asha R."
	updated, err := s.AuthService.UpdateProfile(s.Ctx, user.ID, &domain.UpdateProfileInput{Name: &name})
	s.Require().NoError(err)
	s.Equal(name, updated.Name)

	_, err = s.AuthService.Login(s.Ctx, "profile@example.com", "plaque2024")
	s.Require().NoError(err)

	pass := "newplaque99"
	_, err = s.AuthService.UpdateProfile(s.Ctx, user.ID, &domain.UpdateProfileInput{Password: &pass})
	s.Require().NoError(err)

	_, err = s.AuthService.Login(s.Ctx, "profile@example.com", "newplaque99")
	s.Require().NoError(err)
}

func (s *IntegrationTestSuite) TestAddresses_SingleDefault() {
	user := s.registerUser("addr@example.com")

	second, err := s.AuthService.AddAddress(s.Ctx, user.ID, &domain.Address{
		FullName: "Office", Phone: "9876543210", Line1: "Tower B", City: "Mumbai", State: "MH", PostalCode: "400001",
	})
	s.Require().NoError(err)
	s.False(second.IsDefault)
	s.Equal("India", second.Country)

	s.Require().NoError(s.AuthService.SetDefaultAddress(s.Ctx, user.ID, second.ID))

	addresses, err := s.AuthService.ListAddresses(s.Ctx, user.ID)
	s.Require().NoError(err)
	s.Require().Len(addresses, 2)

	defaults := 0
	for _, a := range addresses {
		if a.IsDefault {
			defaults++
			s.Equal(second.ID, a.ID)
		}
	}
	s.Equal(1, defaults)

	s.Require().NoError(s.AuthService.DeleteAddress(s.Ctx, user.ID, second.ID))

	err = s.AuthService.DeleteAddress(s.Ctx, user.ID, second.ID)
	s.Require().ErrorIs(err, repository.ErrAddressNotFound)
}
