package main

import (
	"context"
	"fmt"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/user"
)

var roleFlags = map[string][]string{
	"admin":   {user.RoleAdmin},
	"teacher": {user.RoleTeacher},
	"student": {user.RoleStudent},
}

// addUser updates or creates an active user.User with the given roles.
func (cli *commandLine) addUser(name, uname, email, pwd string, roles []string) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)
	name = core.CleanString(name)

	lookup := uname
	if lookup == "" {
		lookup = email
	}
	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, lookup)
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		if name == "" {
			name = uname
		}
		usr, err = cli.usrSvc.Create(ctx, user.NewUser{
			Name:     name,
			Username: uname,
			Email:    email,
			Password: pwd,
			Roles:    roles,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "user %q created\n", usr.Username)
		return nil
	}

	active := true
	uu := user.UpdateUser{
		Name:     usr.Name,
		Username: usr.Username,
		Email:    usr.Email,
		IsActive: &active,
		Roles:    roles,
		Password: pwd,
	}
	if name != "" {
		uu.Name = name
	}
	if email != "" {
		uu.Email = email
	}
	if usr, err = cli.usrSvc.Update(ctx, usr, uu); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "user %q updated\n", usr.Username)
	return nil
}
