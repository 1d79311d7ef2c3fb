package main

func (cli *commandLine) addAdmin(fullName, email, pwd string) error {
	if _, err := cli.usrSvc.CreateAdmin(fullName, email, pwd); err != nil {
		return err
	}
	return nil
}
